package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that normalization cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if c.Splitter.MinSceneSeconds <= 0 {
		problems = append(problems, "splitter.min_scene_seconds must be positive")
	}
	if c.Splitter.SnapToleranceSeconds <= 0 {
		problems = append(problems, "splitter.snap_tolerance_seconds must be positive")
	}
	if c.Workflow.JobStaleTimeoutSeconds <= c.Workflow.ProcessingTimeoutSeconds {
		problems = append(problems,
			"workflow.job_stale_timeout_seconds must exceed workflow.processing_timeout_seconds so a live worker is never raced by re-admission")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
