package utils

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Tool is an external binary the application shells out to
type Tool struct {
	Binary   string
	Purpose  string
	Required bool
}

// MediaTools are the ffmpeg binaries used for validation and comparison
func MediaTools(ffprobe, ffmpeg string) []Tool {
	return []Tool{
		{Binary: ffprobe, Purpose: "playability validation", Required: true},
		{Binary: ffmpeg, Purpose: "before/after frame comparison"},
	}
}

// CheckTools looks every tool up in PATH. A missing required tool is an error, missing
// optional tools are returned so the caller can degrade.
func CheckTools(tools []Tool) ([]Tool, error) {
	var missing, missingRequired []string
	var optional []Tool

	for _, tool := range tools {
		if _, err := exec.LookPath(tool.Binary); err != nil {
			missing = append(missing, tool.Binary)
			if tool.Required {
				missingRequired = append(missingRequired, tool.Binary)
			} else {
				optional = append(optional, tool)
			}
		}
	}

	if len(missingRequired) > 0 {
		return optional, fmt.Errorf("%s not found in PATH. %s", strings.Join(missing, ", "), getInstallationInstructions())
	}
	return optional, nil
}

// getInstallationInstructions returns platform-specific installation instructions
func getInstallationInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install ffmpeg"
	case "linux":
		return "Install with: apt-get install ffmpeg (Ubuntu/Debian) or yum install ffmpeg (CentOS/RHEL)"
	case "windows":
		return "Download from https://ffmpeg.org/download.html and add to PATH"
	default:
		return "Download from https://ffmpeg.org/download.html"
	}
}
