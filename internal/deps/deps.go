// Package deps reports the availability of the external binaries the audio
// pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"scribe/internal/config"
)

// Requirement defines an external dependency Scribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external tools configured for the media service.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "audio fetcher",
			Command:     cfg.Media.FetchBinary,
			Description: "downloads the audio track from the source URL",
		},
		{
			Name:        "ffmpeg",
			Command:     cfg.Media.FFmpegBinary,
			Description: "splits oversized audio into transcription segments",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check evaluates all configured requirements.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}
