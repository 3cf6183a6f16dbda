package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"clipper/internal/config"
)

// BinaryStatus reports whether one external binary the pipeline shells out
// to can be found.
type BinaryStatus struct {
	Name      string
	Command   string
	Optional  bool
	Available bool
	Detail    string
}

// CheckSystemDeps reports availability of the external binaries configured
// for this installation. Both the daemon preflight and the CLI status
// command use this so the requirements list lives in one place.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []BinaryStatus {
	return []BinaryStatus{
		checkBinary("FFmpeg", cfg.FFmpegBinary(), false),
		checkBinary("WhisperX", cfg.WhisperXBinary(), false),
	}
}

func checkBinary(name, command string, optional bool) BinaryStatus {
	status := BinaryStatus{
		Name:     name,
		Command:  strings.TrimSpace(command),
		Optional: optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}
