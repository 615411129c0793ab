package video

import (
	"fmt"
	"time"
)

// Metadata contains what a successful probe learned about a video
type Metadata struct {
	Width    int
	Height   int
	Codec    string
	Duration time.Duration
}

// Resolution formats the frame size as WIDTHxHEIGHT
func (m *Metadata) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// DurationMins returns the duration in minutes
func (m *Metadata) DurationMins() float64 {
	return m.Duration.Minutes()
}

// Comparison describes an original video next to its enhanced version
type Comparison struct {
	Before *Metadata
	After  *Metadata

	// FrameDistance is the perceptual hash Hamming distance (0-64) between one frame
	// of each video, or -1 when no frame could be hashed
	FrameDistance int
}

// Upscaled reports whether the enhanced video has more pixels than the original
func (c *Comparison) Upscaled() bool {
	if c.Before == nil || c.After == nil {
		return false
	}
	return c.After.Width*c.After.Height > c.Before.Width*c.Before.Height
}
