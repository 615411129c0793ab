// Package workflow drives the upload-and-compare run: one selected video is posted to
// the enhancement service, the answer is proven playable and both videos are exposed
// as object URLs.
//
// The Controller is the single authority over the workflow state. The upload and the
// cosmetic progress ticker are two independent event sources feeding it; whatever
// settles the upload also stops the ticker inside the same critical section.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lepinkainen/videoenhance/enhance"
	"github.com/lepinkainen/videoenhance/objecturl"
	"github.com/lepinkainen/videoenhance/video"
)

// DownloadName is the file name the enhanced video is offered under
const DownloadName = "enhanced_video.mp4"

const (
	DefaultTickInterval      = 10 * time.Second
	DefaultMaxIncrement      = 10.0
	DefaultProgressCap       = 95.0
	DefaultValidationTimeout = 5 * time.Second
	DefaultSuccessDelay      = 1500 * time.Millisecond

	defaultResultType = "video/mp4"
)

// Enhancer sends one video to the enhancement service
type Enhancer interface {
	Enhance(ctx context.Context, up enhance.Upload) (*enhance.Payload, error)
}

// Options tunes a Controller. Zero values fall back to the defaults above.
type Options struct {
	Registry *objecturl.Registry // where object URLs are created, a private one if nil
	Comparer video.Comparer      // optional before/after inspection after success

	TickInterval      time.Duration
	MaxIncrement      float64 // largest progress step per tick
	ProgressCap       float64 // progress never passes this before the upload settles
	ValidationTimeout time.Duration
	SuccessDelay      time.Duration
	MaxFileSize       int64 // 0 means unlimited

	Rand     func() float64 // [0,1) source for progress steps
	OnChange func(Snapshot) // called after every transition, never with a stale snapshot
	Logger   *logrus.Logger
}

// Controller owns the state of one workflow instance
type Controller struct {
	enhancer Enhancer
	prober   video.Prober
	opts     Options
	registry *objecturl.Registry
	log      *logrus.Entry

	mu         sync.Mutex
	state      State
	finalizing bool
	settled    bool
	progress   float64
	file       *FileInfo
	result     *Result
	pending    *Result // validated but still in the success sub-state
	err        *Error
	gen        uint64 // identifies the current upload, stale events carry an older one
	seq        uint64
	cancel     context.CancelFunc
	stopTick   context.CancelFunc
	closed     bool

	emitMu  sync.Mutex
	emitted uint64

	wg sync.WaitGroup
}

// New creates an idle controller
func New(enhancer Enhancer, prober video.Prober, opts Options) *Controller {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.MaxIncrement <= 0 {
		opts.MaxIncrement = DefaultMaxIncrement
	}
	if opts.ProgressCap <= 0 || opts.ProgressCap > 100 {
		opts.ProgressCap = DefaultProgressCap
	}
	if opts.ValidationTimeout <= 0 {
		opts.ValidationTimeout = DefaultValidationTimeout
	}
	if opts.SuccessDelay <= 0 {
		opts.SuccessDelay = DefaultSuccessDelay
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	registry := opts.Registry
	if registry == nil {
		registry = objecturl.NewRegistry("", opts.Logger)
	}

	return &Controller{
		enhancer: enhancer,
		prober:   prober,
		opts:     opts,
		registry: registry,
		log:      opts.Logger.WithField("component", "workflow"),
	}
}

// Submit starts enhancing file. ctx bounds the whole upload, cancelling it aborts the
// request. Non-video files are rejected with ErrRejectedInput and leave the state
// untouched; a second Submit while uploading returns ErrBusy. Submitting from a
// finished run releases that run first.
func (c *Controller) Submit(ctx context.Context, file SelectedFile) error {
	if !video.IsVideoMediaType(file.MediaType) {
		c.log.WithFields(logrus.Fields{"file": file.Name, "type": file.MediaType}).Warn("Ignoring non-video file")
		return fmt.Errorf("%w: %s has type %q", ErrRejectedInput, file.Name, file.MediaType)
	}
	if c.opts.MaxFileSize > 0 && file.Size > c.opts.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, file.Name, file.Size, c.opts.MaxFileSize)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == Uploading {
		c.mu.Unlock()
		return ErrBusy
	}

	c.releaseLocked()
	c.gen++
	gen := c.gen
	upCtx, cancel := context.WithCancel(ctx)
	tickCtx, stopTick := context.WithCancel(upCtx)
	c.cancel, c.stopTick = cancel, stopTick

	info := file.Info()
	c.state = Uploading
	c.progress = 0
	c.finalizing, c.settled = false, false
	c.file, c.err = &info, nil
	snap := c.changedLocked()
	c.wg.Add(2)
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"file": file.Name,
		"type": file.MediaType,
		"size": file.Size,
	}).Info("Starting enhancement")
	c.emit(snap)

	go c.tick(tickCtx, gen)
	go c.run(upCtx, gen, file)
	return nil
}

// Reset returns to Idle, aborting an upload in flight and revoking every handle the
// run created. Resetting an idle controller does nothing.
func (c *Controller) Reset() {
	c.mu.Lock()
	snap, changed := c.resetLocked()
	c.mu.Unlock()

	if changed {
		c.log.Debug("Workflow reset")
		c.emit(snap)
	}
}

// Close tears the workflow down: it resets, refuses further submits and waits for
// the background goroutines to exit.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	snap, changed := c.resetLocked()
	c.mu.Unlock()

	if changed {
		c.emit(snap)
	}
	c.wg.Wait()
	return nil
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Download writes the validated enhanced video to w
func (c *Controller) Download(w io.Writer) (int64, error) {
	c.mu.Lock()
	if c.state != Succeeded || c.result == nil {
		c.mu.Unlock()
		return 0, ErrNoResult
	}
	h := c.result.After
	c.mu.Unlock()

	return h.WriteTo(w)
}

// Registry returns the registry the controller creates object URLs in
func (c *Controller) Registry() *objecturl.Registry { return c.registry }

func (c *Controller) tick(ctx context.Context, gen uint64) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.advance(gen)
		}
	}
}

// advance applies one cosmetic progress step
func (c *Controller) advance(gen uint64) {
	step := c.opts.Rand()
	if step < 0 {
		step = 0
	} else if step > 1 {
		step = 1
	}

	c.mu.Lock()
	if gen != c.gen || c.state != Uploading || c.settled {
		c.mu.Unlock()
		return
	}
	next := min(c.progress+step*c.opts.MaxIncrement, c.opts.ProgressCap)
	if next <= c.progress {
		c.mu.Unlock()
		return
	}
	c.progress = next
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
}

func (c *Controller) run(ctx context.Context, gen uint64, file SelectedFile) {
	defer c.wg.Done()

	original, err := file.ReadAll()
	var payload *enhance.Payload
	if err == nil {
		payload, err = c.enhancer.Enhance(ctx, enhance.Upload{
			Name:      file.Name,
			MediaType: file.MediaType,
			Body:      bytes.NewReader(original),
		})
	}

	// any terminal response finishes the progress bar
	if !c.settle(gen) {
		return
	}
	if err != nil {
		c.fail(gen, err)
		return
	}

	mediaType := payload.MediaType
	if !video.IsVideoMediaType(mediaType) {
		mediaType = defaultResultType
	}
	after := c.registry.Create(payload.Data, mediaType, DownloadName)
	meta, err := c.validate(ctx, after)
	if err != nil {
		after.Revoke()
		c.fail(gen, err)
		return
	}

	before := c.registry.Create(original, file.MediaType, file.Name)
	result := &Result{Before: before, After: after, Metadata: meta}
	if !c.finalize(gen, result) {
		return
	}

	timer := time.NewTimer(c.opts.SuccessDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		c.fail(gen, ctx.Err())
		return
	}

	if !c.complete(gen, result) {
		return
	}
	if c.opts.Comparer != nil {
		c.wg.Add(1)
		go c.compare(ctx, gen, result)
	}
}

type probeResult struct {
	meta *video.Metadata
	err  error
}

// validate proves the blob behind h is playable within ValidationTimeout
func (c *Controller) validate(ctx context.Context, h *objecturl.Handle) (*video.Metadata, error) {
	r, err := h.Open()
	if err != nil {
		return nil, err
	}

	vctx, cancel := context.WithTimeout(ctx, c.opts.ValidationTimeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		meta, err := c.prober.Probe(vctx, r)
		done <- probeResult{meta, err}
	}()

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() == nil && errors.Is(vctx.Err(), context.DeadlineExceeded) && !errors.Is(res.err, video.ErrUnplayable) {
			return nil, fmt.Errorf("%w: metadata did not load within %s", video.ErrUnplayable, c.opts.ValidationTimeout)
		}
		return res.meta, res.err
	case <-vctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: metadata did not load within %s", video.ErrUnplayable, c.opts.ValidationTimeout)
	}
}

func (c *Controller) compare(ctx context.Context, gen uint64, result *Result) {
	defer c.wg.Done()

	before, err := result.Before.Open()
	if err != nil {
		return
	}
	after, err := result.After.Open()
	if err != nil {
		return
	}

	cmp, err := c.opts.Comparer.Compare(ctx, before, after)
	if err != nil {
		c.log.WithError(err).Debug("Could not compare videos")
		return
	}

	c.mu.Lock()
	if gen != c.gen || c.state != Succeeded || c.result != result {
		c.mu.Unlock()
		return
	}
	updated := *result
	updated.Comparison = cmp
	c.result = &updated
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// settle records the terminal response of the upload: the ticker stops and progress
// is forced to 100 in one step. It reports false when the upload went stale.
func (c *Controller) settle(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || c.state != Uploading {
		c.mu.Unlock()
		return false
	}
	if c.stopTick != nil {
		c.stopTick()
	}
	c.settled = true
	c.progress = 100
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
	return true
}

func (c *Controller) fail(gen uint64, cause error) {
	e := classify(cause)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.revokePendingLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel, c.stopTick = nil, nil
	}
	c.state = Failed
	c.finalizing = false
	c.err = e
	snap := c.changedLocked()
	c.mu.Unlock()

	c.log.WithError(cause).WithField("kind", e.Kind).Warn("Enhancement failed")
	c.emit(snap)
}

// finalize enters the success sub-state holding result as pending
func (c *Controller) finalize(gen uint64, result *Result) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		revoke(result)
		return false
	}
	c.pending = result
	c.finalizing = true
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
	return true
}

func (c *Controller) complete(gen uint64, result *Result) bool {
	c.mu.Lock()
	if gen != c.gen || c.pending != result {
		c.mu.Unlock()
		return false
	}
	c.pending = nil
	c.result = result
	c.state = Succeeded
	c.finalizing = false
	snap := c.changedLocked()
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"before": result.Before.URL(),
		"after":  result.After.URL(),
	}).Info("Enhancement complete")
	c.emit(snap)
	return true
}

func (c *Controller) resetLocked() (Snapshot, bool) {
	if c.state == Idle {
		return Snapshot{}, false
	}
	c.gen++
	c.releaseLocked()
	c.state = Idle
	c.progress = 0
	c.finalizing, c.settled = false, false
	c.file, c.err = nil, nil
	return c.changedLocked(), true
}

// releaseLocked aborts the current run and revokes everything it owns
func (c *Controller) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel, c.stopTick = nil, nil
	}
	revoke(c.result)
	c.result = nil
	c.revokePendingLocked()
}

func (c *Controller) revokePendingLocked() {
	revoke(c.pending)
	c.pending = nil
}

func revoke(r *Result) {
	if r == nil {
		return
	}
	r.Before.Revoke()
	r.After.Revoke()
}

func (c *Controller) changedLocked() Snapshot {
	c.seq++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:        c.seq,
		State:      c.state,
		Finalizing: c.finalizing,
		Progress:   c.progress,
		File:       c.file,
		Result:     c.result,
		Err:        c.err,
	}
}

// emit forwards a snapshot to OnChange, dropping it if a newer one already went out
func (c *Controller) emit(s Snapshot) {
	if c.opts.OnChange == nil {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if s.Seq <= c.emitted {
		return
	}
	c.emitted = s.Seq
	c.opts.OnChange(s)
}
