package video

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		// Valid video files
		{"MP4 lowercase", "test.mp4", true},
		{"MP4 uppercase", "test.MP4", true},
		{"WebM", "test.webm", true},
		{"MOV", "test.mov", true},
		{"FLV", "test.flv", true},
		{"MKV", "test.mkv", true},
		{"AVI", "test.avi", true},
		{"WMV", "test.wmv", true},
		{"MPG", "test.mpg", true},

		// With full path
		{"Full path MP4", "/path/to/video.mp4", true},
		{"Relative path", "./videos/test.mov", true},

		// Invalid files
		{"No extension", "test", false},
		{"Text file", "test.txt", false},
		{"Image file", "test.png", false},
		{"Audio file", "test.mp3", false},
		{"Empty string", "", false},

		// Edge cases
		{"Multiple dots", "test.video.mp4", true},
		{"Hidden file", ".hidden.mp4", true},
		{"Space in name", "test file.mp4", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsVideoFile(tt.path)
			if result != tt.expected {
				t.Errorf("IsVideoFile(%q) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestIsVideoMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		expected  bool
	}{
		{"video/mp4", true},
		{"video/quicktime", true},
		{"VIDEO/MP4", true},
		{" video/webm ", true},
		{"image/png", false},
		{"audio/mpeg", false},
		{"application/octet-stream", false},
		{"videos/mp4", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			if got := IsVideoMediaType(tt.mediaType); got != tt.expected {
				t.Errorf("IsVideoMediaType(%q) = %v, expected %v", tt.mediaType, got, tt.expected)
			}
		})
	}
}

func TestDetectMediaType(t *testing.T) {
	dir := t.TempDir()

	mp4Header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2',
		0x00, 0x00, 0x00, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '2'}
	pngHeader := []byte("\x89PNG\x0D\x0A\x1A\x0A")

	tests := []struct {
		name     string
		filename string
		content  []byte
		expected string
	}{
		{"Known extension", "clip.mov", []byte("anything"), "video/quicktime"},
		{"Uppercase extension", "CLIP.MP4", []byte("anything"), "video/mp4"},
		{"Sniffed MP4 without extension", "upload", mp4Header, "video/mp4"},
		{"Sniffed PNG without extension", "picture", pngHeader, "image/png"},
		{"Plain text without extension", "notes", []byte("hello world"), "text/plain; charset=utf-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.filename)
			if err := os.WriteFile(path, tt.content, 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			got, err := DetectMediaType(path)
			if err != nil {
				t.Fatalf("DetectMediaType() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("DetectMediaType(%q) = %q, expected %q", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestSniffMediaType(t *testing.T) {
	mp4Header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2',
		0x00, 0x00, 0x00, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '2'}

	if got := SniffMediaType("holiday.webm", []byte("anything")); got != "video/webm" {
		t.Errorf("Expected extension to win, got %q", got)
	}
	if got := SniffMediaType("blob", mp4Header); got != "video/mp4" {
		t.Errorf("Expected sniffed video/mp4, got %q", got)
	}
	if got := SniffMediaType("", nil); got != "text/plain; charset=utf-8" {
		t.Errorf("Expected empty content to sniff as text, got %q", got)
	}
}

func TestDetectMediaType_NonExistentFile(t *testing.T) {
	_, err := DetectMediaType("/path/to/nonexistent/upload")
	if err == nil {
		t.Error("DetectMediaType() expected error for non-existent file, got nil")
	}
}

func TestClassifyProbeOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		contains string
	}{
		{"Missing moov atom", "[mov,mp4] moov atom not found\nother", "corrupted (missing metadata)"},
		{"Invalid data", "input.mp4: Invalid data found when processing input", "corrupted or invalid"},
		{"Truncated", "stream truncated", "corrupted or invalid"},
		{"Unknown complaint", "something odd happened", "something odd happened"},
		{"Empty output", "", "no additional information available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyProbeOutput(tt.output)
			if !errors.Is(err, ErrUnplayable) {
				t.Errorf("Expected ErrUnplayable, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("Expected error to contain %q, got: %v", tt.contains, err)
			}
		})
	}
}

func TestExtractFirstLine(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"first\nsecond", "first"},
		{"  padded  \nmore", "padded"},
		{"\n\nlater", "later"},
		{"", "no additional information available"},
	}

	for _, tt := range tests {
		if got := extractFirstLine(tt.input); got != tt.expected {
			t.Errorf("extractFirstLine(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
