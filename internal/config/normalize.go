package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeSplitter()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"data_dir", &c.Paths.DataDir},
		{"staging_dir", &c.Paths.StagingDir},
		{"log_dir", &c.Paths.LogDir},
		{"transcode.output_dir", &c.Transcode.OutputDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			continue
		}
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeSplitter() {
	if c.Splitter.SnapToleranceSeconds <= 0 {
		c.Splitter.SnapToleranceSeconds = defaultSnapToleranceSeconds
	}
	if c.Splitter.MinSceneSeconds <= 0 {
		c.Splitter.MinSceneSeconds = defaultMinSceneSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.JobStaleTimeoutSeconds <= 0 {
		c.Workflow.JobStaleTimeoutSeconds = defaultJobStaleTimeoutSeconds
	}
	if c.Workflow.ProcessingTimeoutSeconds <= 0 {
		c.Workflow.ProcessingTimeoutSeconds = defaultProcessingTimeoutSeconds
	}
	if c.Workflow.SubtaskRetryAttempts <= 0 {
		c.Workflow.SubtaskRetryAttempts = defaultSubtaskRetryAttempts
	}
	if c.Workflow.SubtaskRetryBaseDelayMs <= 0 {
		c.Workflow.SubtaskRetryBaseDelayMs = defaultSubtaskRetryBaseDelayMs
	}
	if c.Workflow.SubtaskRetryMaxDelayMs <= 0 {
		c.Workflow.SubtaskRetryMaxDelayMs = defaultSubtaskRetryMaxDelayMs
	}
	if c.Workflow.RedeliveryTimeoutSeconds <= 0 {
		c.Workflow.RedeliveryTimeoutSeconds = defaultRedeliveryTimeoutSeconds
	}
	if strings.TrimSpace(c.Workflow.DefaultSegmentLang) == "" {
		c.Workflow.DefaultSegmentLang = defaultSegmentLang
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
