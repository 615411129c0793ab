package objecturl

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// ErrRevoked is returned when a revoked handle is read
var ErrRevoked = errors.New("object URL has been revoked")

// Handle owns one blob held by a Registry. The blob stays reachable through URL()
// until Revoke is called; after that the registry forgets it and reads fail.
type Handle struct {
	id        string
	url       string
	name      string
	mediaType string
	created   time.Time

	registry *Registry

	mu      sync.RWMutex
	data    []byte
	revoked bool
}

// ID returns the registry key of the handle
func (h *Handle) ID() string { return h.id }

// URL returns the temporary URL the blob is reachable at
func (h *Handle) URL() string { return h.url }

// Name returns the display name attached at creation
func (h *Handle) Name() string { return h.name }

// MediaType returns the declared media type of the blob
func (h *Handle) MediaType() string { return h.mediaType }

// Created returns the creation time, used as Last-Modified when serving
func (h *Handle) Created() time.Time { return h.created }

// Size returns the blob size in bytes, 0 once revoked
func (h *Handle) Size() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return int64(len(h.data))
}

// Revoked reports whether Revoke has already released the blob
func (h *Handle) Revoked() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revoked
}

// Open returns a seekable reader over the blob
func (h *Handle) Open() (io.ReadSeeker, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.revoked {
		return nil, ErrRevoked
	}
	return bytes.NewReader(h.data), nil
}

// WriteTo copies the blob into w
func (h *Handle) WriteTo(w io.Writer) (int64, error) {
	r, err := h.Open()
	if err != nil {
		return 0, err
	}
	return io.Copy(w, r)
}

// Revoke releases the blob. Only the first call does any work and returns true,
// so a handle is released exactly once no matter how many exit paths reach it.
func (h *Handle) Revoke() bool {
	h.mu.Lock()
	if h.revoked {
		h.mu.Unlock()
		return false
	}
	h.revoked = true
	h.data = nil
	h.mu.Unlock()

	if h.registry != nil {
		h.registry.release(h)
	}
	return true
}
