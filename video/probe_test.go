package video

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/sirupsen/logrus"
)

func quietProbe() *FFProbe {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewFFProbe(logger)
}

func requireFFprobe(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantErr    bool
		resolution string
		codec      string
		duration   time.Duration
	}{
		{
			name:       "Full output",
			output:     `{"streams":[{"codec_name":"h264","width":1920,"height":1080}],"format":{"duration":"12.500000"}}`,
			resolution: "1920x1080",
			codec:      "h264",
			duration:   12500 * time.Millisecond,
		},
		{
			name:       "Duration not available",
			output:     `{"streams":[{"codec_name":"vp9","width":640,"height":360}],"format":{"duration":"N/A"}}`,
			resolution: "640x360",
			codec:      "vp9",
		},
		{
			name:    "No video stream",
			output:  `{"streams":[],"format":{"duration":"3.0"}}`,
			wantErr: true,
		},
		{
			name:    "Zero frame size",
			output:  `{"streams":[{"codec_name":"h264","width":0,"height":0}]}`,
			wantErr: true,
		},
		{
			name:    "Garbage",
			output:  `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := parseProbeOutput([]byte(tt.output))
			if tt.wantErr {
				if !errors.Is(err, ErrUnplayable) {
					t.Errorf("Expected ErrUnplayable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbeOutput() error = %v", err)
			}
			if meta.Resolution() != tt.resolution {
				t.Errorf("Expected resolution %s, got %s", tt.resolution, meta.Resolution())
			}
			if meta.Codec != tt.codec {
				t.Errorf("Expected codec %s, got %s", tt.codec, meta.Codec)
			}
			if meta.Duration != tt.duration {
				t.Errorf("Expected duration %v, got %v", tt.duration, meta.Duration)
			}
		})
	}
}

func TestProbeFile_NonExistentFile(t *testing.T) {
	_, err := quietProbe().ProbeFile(context.Background(), "/path/to/nonexistent/video.mp4")
	if err == nil {
		t.Fatal("ProbeFile() expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "file not accessible") {
		t.Errorf("Expected error to contain 'file not accessible', got: %v", err)
	}
}

func TestProbeFile_EmptyFile(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(testFile, []byte(""), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	_, err := quietProbe().ProbeFile(context.Background(), testFile)
	if !errors.Is(err, ErrUnplayable) {
		t.Errorf("Expected ErrUnplayable for empty file, got %v", err)
	}
}

func TestProbeFile_Directory(t *testing.T) {
	_, err := quietProbe().ProbeFile(context.Background(), t.TempDir())
	if !errors.Is(err, ErrUnplayable) {
		t.Errorf("Expected ErrUnplayable for directory, got %v", err)
	}
}

func TestProbe_FakeVideo(t *testing.T) {
	requireFFprobe(t)

	// Random bytes the way a broken service answer looks
	_, err := quietProbe().Probe(context.Background(), strings.NewReader("This is not a video file"))
	if !errors.Is(err, ErrUnplayable) {
		t.Errorf("Expected ErrUnplayable for non-video data, got %v", err)
	}
}

func TestProbe_MissingBinary(t *testing.T) {
	p := quietProbe()
	p.Binary = "videoenhance-no-such-ffprobe"

	_, err := p.Probe(context.Background(), strings.NewReader("bytes"))
	if !errors.Is(err, ErrProberUnavailable) {
		t.Errorf("Expected ErrProberUnavailable, got %v", err)
	}
}

func TestProbe_ExpiredContext(t *testing.T) {
	requireFFprobe(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := quietProbe().Probe(ctx, strings.NewReader("This is not a video file"))
	if !errors.Is(err, ErrUnplayable) {
		t.Errorf("Expected ErrUnplayable on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the deadline to be wrapped, got %v", err)
	}
}

func TestSpool_RemovesFile(t *testing.T) {
	p := quietProbe()
	p.TempDir = t.TempDir()

	path, cleanup, err := p.spool(strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("spool() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read spooled file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected spooled content 'payload', got %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected spooled file to be removed, stat error = %v", err)
	}
}

func TestFrameDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint64
		expected int
	}{
		{"Identical", 0xFF00FF00FF00FF00, 0xFF00FF00FF00FF00, 0},
		{"One bit", 0x0, 0x1, 1},
		{"Inverted", 0x0, 0xFFFFFFFFFFFFFFFF, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := goimagehash.NewImageHash(tt.a, goimagehash.PHash)
			b := goimagehash.NewImageHash(tt.b, goimagehash.PHash)
			got, err := frameDistance(a, b)
			if err != nil {
				t.Fatalf("frameDistance() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("frameDistance() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestComparison_Upscaled(t *testing.T) {
	tests := []struct {
		name     string
		cmp      Comparison
		expected bool
	}{
		{"Upscaled", Comparison{Before: &Metadata{Width: 640, Height: 360}, After: &Metadata{Width: 1920, Height: 1080}}, true},
		{"Same size", Comparison{Before: &Metadata{Width: 640, Height: 360}, After: &Metadata{Width: 640, Height: 360}}, false},
		{"Missing side", Comparison{Before: &Metadata{Width: 640, Height: 360}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmp.Upscaled(); got != tt.expected {
				t.Errorf("Upscaled() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
