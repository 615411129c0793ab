package video

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"os"
	"os/exec"

	"github.com/corona10/goimagehash"
	"golang.org/x/sync/errgroup"
)

// Comparer inspects an original video next to its enhanced version
type Comparer interface {
	Compare(ctx context.Context, before, after io.Reader) (*Comparison, error)
}

// frameOffsets are the seek positions tried in order; short clips only have a frame at 0
var frameOffsets = []string{"1", "0"}

// FrameHash extracts one frame from a video and calculates its perceptual hash
func (p *FFProbe) FrameHash(ctx context.Context, videoFile string) (*goimagehash.ImageHash, error) {
	frame, err := os.CreateTemp(p.TempDir, "videoenhance-frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create frame file: %w", err)
	}
	tempFrame := frame.Name()
	_ = frame.Close()
	defer func() { _ = os.Remove(tempFrame) }()

	var extractErr error
	for _, offset := range frameOffsets {
		cmd := exec.CommandContext(ctx, p.ffmpeg(), "-v", "error", "-ss", offset, "-i", videoFile,
			"-vframes", "1", "-f", "image2", "-y", tempFrame)
		if extractErr = cmd.Run(); extractErr == nil {
			if fi, err := os.Stat(tempFrame); err == nil && fi.Size() > 0 {
				break
			}
			extractErr = fmt.Errorf("no frame at %ss", offset)
		}
	}
	if extractErr != nil {
		return nil, fmt.Errorf("failed to extract frame: %w", extractErr)
	}

	// Calculate perceptual hash of extracted frame
	file, err := os.Open(tempFrame)
	if err != nil {
		return nil, fmt.Errorf("failed to open extracted frame: %w", err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate perceptual hash: %w", err)
	}

	return hash, nil
}

// Compare probes both videos concurrently and measures how far apart one frame of
// each is. Probe failures fail the comparison; a frame that cannot be hashed only
// leaves FrameDistance at -1.
func (p *FFProbe) Compare(ctx context.Context, before, after io.Reader) (*Comparison, error) {
	beforePath, cleanBefore, err := p.spool(before)
	if err != nil {
		return nil, err
	}
	defer cleanBefore()

	afterPath, cleanAfter, err := p.spool(after)
	if err != nil {
		return nil, err
	}
	defer cleanAfter()

	cmp := &Comparison{FrameDistance: -1}
	var beforeHash, afterHash *goimagehash.ImageHash

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta, err := p.ProbeFile(gctx, beforePath)
		if err != nil {
			return fmt.Errorf("original: %w", err)
		}
		cmp.Before = meta
		return nil
	})
	g.Go(func() error {
		meta, err := p.ProbeFile(gctx, afterPath)
		if err != nil {
			return fmt.Errorf("enhanced: %w", err)
		}
		cmp.After = meta
		return nil
	})
	g.Go(func() error {
		hash, err := p.FrameHash(gctx, beforePath)
		if err != nil {
			p.logger().WithError(err).Debug("could not hash original frame")
			return nil
		}
		beforeHash = hash
		return nil
	})
	g.Go(func() error {
		hash, err := p.FrameHash(gctx, afterPath)
		if err != nil {
			p.logger().WithError(err).Debug("could not hash enhanced frame")
			return nil
		}
		afterHash = hash
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if beforeHash != nil && afterHash != nil {
		distance, err := frameDistance(beforeHash, afterHash)
		if err != nil {
			p.logger().WithError(err).Debug("could not compare frame hashes")
		} else {
			cmp.FrameDistance = distance
		}
	}
	return cmp, nil
}

func frameDistance(a, b *goimagehash.ImageHash) (int, error) {
	return a.Distance(b)
}
