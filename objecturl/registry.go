// Package objecturl keeps in-memory media blobs reachable through temporary URLs.
//
// Every blob is owned by a Handle. Owners must call Handle.Revoke when they are done
// with it, otherwise the buffer stays in memory for the lifetime of the process.
package objecturl

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BlobPath is the route prefix blobs are served under
const BlobPath = "/blob/"

// Registry tracks live handles and hands out their URLs
type Registry struct {
	baseURL string
	log     *logrus.Entry

	mu      sync.RWMutex
	handles map[string]*Handle
	created int
	revoked int
}

// NewRegistry creates a registry whose URLs are rooted at baseURL, for example
// "http://localhost:8080". With an empty baseURL handles get opaque blob: URLs that
// are only resolvable in-process.
func NewRegistry(baseURL string, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.WithField("component", "objecturl"),
		handles: make(map[string]*Handle),
	}
}

// Create registers data and returns the handle owning it
func (r *Registry) Create(data []byte, mediaType, name string) *Handle {
	id := uuid.Must(uuid.NewV7()).String()
	h := &Handle{
		id:        id,
		url:       r.urlFor(id),
		name:      name,
		mediaType: mediaType,
		created:   time.Now(),
		registry:  r,
		data:      data,
	}

	r.mu.Lock()
	r.handles[id] = h
	r.created++
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"id":    id,
		"name":  name,
		"type":  mediaType,
		"bytes": len(data),
	}).Debug("object URL created")
	return h
}

func (r *Registry) urlFor(id string) string {
	if r.baseURL == "" {
		return "blob:videoenhance/" + id
	}
	return r.baseURL + BlobPath + id
}

// Lookup finds a live handle by id
func (r *Registry) Lookup(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Live returns the number of handles not yet revoked
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Revoked returns how many handles have been released so far
func (r *Registry) Revoked() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.revoked
}

// Created returns how many handles have ever been created
func (r *Registry) Created() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.created
}

// RevokeAll releases every live handle and returns how many were released
func (r *Registry) RevokeAll() int {
	r.mu.RLock()
	live := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		live = append(live, h)
	}
	r.mu.RUnlock()

	n := 0
	for _, h := range live {
		if h.Revoke() {
			n++
		}
	}
	return n
}

func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	if _, ok := r.handles[h.id]; ok {
		delete(r.handles, h.id)
		r.revoked++
	}
	r.mu.Unlock()

	r.log.WithField("id", h.id).Debug("object URL revoked")
}
