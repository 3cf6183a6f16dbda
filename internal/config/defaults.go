package config

const (
	defaultDataDir                  = "~/.local/share/clipper"
	defaultStagingDir               = "~/.local/share/clipper/staging"
	defaultLogDir                   = "~/.local/share/clipper/logs"
	defaultLLMBaseURL               = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                 = "google/gemini-3-flash-preview"
	defaultLLMReferer               = "https://github.com/clipper-media/clipper"
	defaultLLMTitle                 = "Clipper Scene Splitter"
	defaultLLMTimeoutSeconds        = 60
	defaultSnapToleranceSeconds     = 5.0
	defaultMinSceneSeconds          = 10.0
	defaultASRModel                 = "large-v3-turbo"
	defaultTranscodeSegmentSeconds  = 6
	defaultWorkers                  = 4
	defaultErrorRetryInterval       = 10
	defaultJobStaleTimeoutSeconds   = 3600
	defaultProcessingTimeoutSeconds = 1800
	defaultSubtaskRetryAttempts     = 3
	defaultSubtaskRetryBaseDelayMs  = 500
	defaultSubtaskRetryMaxDelayMs   = 10000
	defaultRedeliveryTimeoutSeconds = 300
	defaultSegmentLang              = "en"
	defaultNtfyRequestTimeout       = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Splitter: Splitter{
			SnapToleranceSeconds: defaultSnapToleranceSeconds,
			MinSceneSeconds:      defaultMinSceneSeconds,
		},
		ASR: ASR{
			Model: defaultASRModel,
		},
		Transcode: Transcode{
			SegmentSec: defaultTranscodeSegmentSeconds,
		},
		Workflow: Workflow{
			Workers:                  defaultWorkers,
			ErrorRetryInterval:       defaultErrorRetryInterval,
			JobStaleTimeoutSeconds:   defaultJobStaleTimeoutSeconds,
			ProcessingTimeoutSeconds: defaultProcessingTimeoutSeconds,
			SubtaskRetryAttempts:     defaultSubtaskRetryAttempts,
			SubtaskRetryBaseDelayMs:  defaultSubtaskRetryBaseDelayMs,
			SubtaskRetryMaxDelayMs:   defaultSubtaskRetryMaxDelayMs,
			RedeliveryTimeoutSeconds: defaultRedeliveryTimeoutSeconds,
			DefaultSegmentLang:       defaultSegmentLang,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			SplitEvents:    true,
			IngestEvents:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
