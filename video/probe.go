package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrProberUnavailable is returned when the ffprobe binary cannot be started
var ErrProberUnavailable = errors.New("ffprobe is not available")

// Prober proves that a blob is a playable video by loading its metadata
type Prober interface {
	Probe(ctx context.Context, r io.Reader) (*Metadata, error)
}

// FFProbe implements Prober and Comparer on top of the ffprobe and ffmpeg binaries
type FFProbe struct {
	Binary  string // ffprobe executable, defaults to "ffprobe"
	FFmpeg  string // ffmpeg executable used for frame extraction, defaults to "ffmpeg"
	TempDir string // where blobs are spooled, defaults to os.TempDir()

	log *logrus.Entry
}

// NewFFProbe creates a prober using the binaries found in PATH
func NewFFProbe(logger *logrus.Logger) *FFProbe {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FFProbe{
		Binary: "ffprobe",
		FFmpeg: "ffmpeg",
		log:    logger.WithField("component", "video"),
	}
}

type probeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe spools r to a temporary file and probes it. The context bounds how long
// loading the metadata may take; running out of time counts as unplayable.
func (p *FFProbe) Probe(ctx context.Context, r io.Reader) (*Metadata, error) {
	path, cleanup, err := p.spool(r)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return p.ProbeFile(ctx, path)
}

// ProbeFile loads the metadata of a video on disk
func (p *FFProbe) ProbeFile(ctx context.Context, path string) (*Metadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file not accessible: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnplayable, path)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrUnplayable)
	}

	args := []string{"-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height:format=duration",
		"-of", "json", "--", path}
	p.logger().Debugln(p.binary(), strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, p.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err = cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: timed out loading metadata: %w", ErrUnplayable, ctxErr)
	}
	if err != nil {
		var execErr *exec.Error
		var pathErr *fs.PathError
		if errors.As(err, &execErr) || errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%w: %w", ErrProberUnavailable, err)
		}
		p.logger().WithError(err).Debugf("ffprobe rejected %s: %s", path, extractFirstLine(stderr.String()))
		return nil, classifyProbeOutput(stderr.String())
	}

	return parseProbeOutput(stdout.Bytes())
}

func parseProbeOutput(data []byte) (*Metadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: unreadable ffprobe output: %v", ErrUnplayable, err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("%w: no video stream found", ErrUnplayable)
	}

	stream := out.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrUnplayable, stream.Width, stream.Height)
	}

	meta := &Metadata{
		Width:  stream.Width,
		Height: stream.Height,
		Codec:  stream.CodecName,
	}
	// live streams and some containers report N/A
	if secs, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil && secs > 0 {
		meta.Duration = time.Duration(secs * float64(time.Second))
	}
	return meta, nil
}

// spool copies r into a temporary file and returns its path plus a cleanup func
func (p *FFProbe) spool(r io.Reader) (string, func(), error) {
	f, err := os.CreateTemp(p.TempDir, "videoenhance-*.video")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to spool video: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to spool video: %w", err)
	}
	return f.Name(), cleanup, nil
}

func (p *FFProbe) binary() string {
	if p.Binary == "" {
		return "ffprobe"
	}
	return p.Binary
}

func (p *FFProbe) ffmpeg() string {
	if p.FFmpeg == "" {
		return "ffmpeg"
	}
	return p.FFmpeg
}

func (p *FFProbe) logger() *logrus.Entry {
	if p.log == nil {
		p.log = logrus.StandardLogger().WithField("component", "video")
	}
	return p.log
}
