package video

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// VideoMediaTypePrefix is the media type prefix every accepted upload must carry
const VideoMediaTypePrefix = "video/"

// ErrUnplayable is returned when a blob cannot be decoded as a video
var ErrUnplayable = errors.New("video cannot be played")

var extensionTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".flv":  "video/x-flv",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".mpg":  "video/mpeg",
}

// IsVideoFile checks if the given file extension is one of known video file extensions
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path)) // handle cases where extension is upper case
	_, ok := extensionTypes[ext]
	return ok
}

// IsVideoMediaType checks that a declared media type starts with video/
func IsVideoMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), VideoMediaTypePrefix)
}

// DetectMediaType figures out the media type of a local file, the way a browser
// fills in File.type: first by extension, then by sniffing the leading bytes.
func DetectMediaType(path string) (string, error) {
	if t := typeByExtension(path); t != "" {
		return t, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("file not accessible: %w", err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read file header: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

// SniffMediaType is DetectMediaType for content that is already in memory
func SniffMediaType(name string, data []byte) string {
	if t := typeByExtension(name); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

func typeByExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// classifyProbeOutput turns ffprobe's complaint into an ErrUnplayable with the
// first useful line of its output
func classifyProbeOutput(output string) error {
	line := extractFirstLine(output)
	switch {
	case strings.Contains(output, "moov atom not found"):
		return fmt.Errorf("%w: corrupted (missing metadata): %s", ErrUnplayable, line)
	case strings.Contains(output, "Invalid data found"),
		strings.Contains(output, "corrupt"),
		strings.Contains(output, "truncated"),
		strings.Contains(output, "Invalid argument"):
		return fmt.Errorf("%w: corrupted or invalid: %s", ErrUnplayable, line)
	}
	return fmt.Errorf("%w: %s", ErrUnplayable, line)
}

// extractFirstLine extracts just the first line from a multi-line string
func extractFirstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0])
	}
	return "no additional information available"
}
