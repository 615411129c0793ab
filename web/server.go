// Package web serves the browser front-end: one upload workflow per browser session,
// the enhanced videos as object URLs and a handful of static pages.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/lepinkainen/videoenhance/config"
	"github.com/lepinkainen/videoenhance/objecturl"
	"github.com/lepinkainen/videoenhance/video"
	"github.com/lepinkainen/videoenhance/workflow"
)

const (
	sessionName = "session"
	workflowKey = "workflow_id"

	DefaultSessionTTL      = 30 * time.Minute
	DefaultCleanupInterval = time.Minute
	DefaultAuthDelay       = time.Second
)

var ErrServerClosed = errors.New("server is shutting down")

//go:embed templates/*.html
var templateFS embed.FS

// Template renderer
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// Options wires a Server
type Options struct {
	Config   *config.Config
	Enhancer workflow.Enhancer
	Prober   video.Prober
	Comparer video.Comparer // optional
	Logger   *logrus.Logger

	SessionTTL      time.Duration // idle sessions are closed after this long
	CleanupInterval time.Duration
	AuthDelay       time.Duration // simulated login/register latency, 0 answers at once
	SuccessDelay    time.Duration // passed to every workflow
}

type browserSession struct {
	ctrl     *workflow.Controller
	lastSeen time.Time
}

// Server hosts the front-end
type Server struct {
	e        *echo.Echo
	cfg      *config.Config
	opts     Options
	registry *objecturl.Registry
	store    *sessions.CookieStore
	log      *logrus.Entry

	// uploads outlive the request that started them
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*browserSession
	closed   bool

	now func() time.Time
}

// New builds the echo app and its routes
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("web: config is required")
	}
	if opts.Enhancer == nil || opts.Prober == nil {
		return nil, errors.New("web: enhancer and prober are required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.AuthDelay < 0 {
		opts.AuthDelay = 0
	}

	key, err := sessionKey(opts.Config.SessionKey)
	if err != nil {
		return nil, err
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Config.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	base, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      opts.Config,
		opts:     opts,
		registry: objecturl.NewRegistry("", opts.Logger),
		store:    store,
		log:      opts.Logger.WithField("component", "web"),
		base:     base,
		cancel:   cancel,
		sessions: make(map[string]*browserSession),
		now:      time.Now,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Renderer = &Template{templates: tmpl}
	s.e = e
	s.routes()
	return s, nil
}

// sessionKey uses the configured key or a random one, which logs everybody out on
// restart
func sessionKey(configured []byte) ([]byte, error) {
	if len(configured) > 0 {
		return configured, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return key, nil
}

// Handler exposes the echo app, mostly for tests
func (s *Server) Handler() http.Handler { return s.e }

// Registry returns the registry every session creates its object URLs in
func (s *Server) Registry() *objecturl.Registry { return s.registry }

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.periodicCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Starting web server")
		errCh <- s.e.Start(addr)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.e.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close aborts every upload and revokes every object URL
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	all := s.sessions
	s.sessions = make(map[string]*browserSession)
	s.mu.Unlock()

	s.cancel()
	for _, bs := range all {
		_ = bs.ctrl.Close()
	}
	if n := s.registry.RevokeAll(); n > 0 {
		s.log.WithField("count", n).Warn("Revoked leftover object URLs")
	}
}

func (s *Server) newController() *workflow.Controller {
	return workflow.New(s.opts.Enhancer, s.opts.Prober, workflow.Options{
		Registry:          s.registry,
		Comparer:          s.opts.Comparer,
		TickInterval:      s.cfg.TickInterval,
		ValidationTimeout: s.cfg.ValidationTimeout,
		MaxFileSize:       s.cfg.MaxUploadBytes(),
		SuccessDelay:      s.opts.SuccessDelay,
		Logger:            s.opts.Logger,
	})
}

// workflowFor returns the workflow of the requesting browser, starting a session
// when there is none
func (s *Server) workflowFor(c echo.Context) (*workflow.Controller, error) {
	sess, err := s.store.Get(c.Request(), sessionName)
	if err != nil {
		// a cookie signed with an old key, the store still hands out a fresh session
		s.log.WithError(err).Debug("Discarding unreadable session cookie")
	}
	id, _ := sess.Values[workflowKey].(string)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServerClosed
	}
	bs, ok := s.sessions[id]
	if !ok {
		id = uuid.NewString()
		bs = &browserSession{ctrl: s.newController()}
		s.sessions[id] = bs
	}
	bs.lastSeen = s.now()
	s.mu.Unlock()

	// saved on every request so the cookie expiry slides with lastSeen
	sess.Values[workflowKey] = id
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if !ok {
		s.log.WithField("session", id).Debug("Started browser session")
	}
	return bs.ctrl, nil
}

// existingWorkflow is workflowFor without starting a session
func (s *Server) existingWorkflow(c echo.Context) (*workflow.Controller, bool) {
	sess, err := s.store.Get(c.Request(), sessionName)
	if err != nil {
		return nil, false
	}
	id, _ := sess.Values[workflowKey].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	bs, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	bs.lastSeen = s.now()
	return bs.ctrl, true
}

// ownBlobsOnly hides object URLs that belong to another browser session
func (s *Server) ownBlobsOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctrl, ok := s.existingWorkflow(c)
		if !ok || !ownsBlob(ctrl.Snapshot(), c.Param("id")) {
			return echo.NewHTTPError(http.StatusNotFound, "object URL revoked or unknown")
		}
		return next(c)
	}
}

func ownsBlob(snap workflow.Snapshot, id string) bool {
	r := snap.Result
	if r == nil || id == "" {
		return false
	}
	return (r.Before != nil && r.Before.ID() == id) || (r.After != nil && r.After.ID() == id)
}

// CleanupIdle closes the workflows of sessions idle since before now-SessionTTL.
// Sessions with an upload in flight are kept.
func (s *Server) CleanupIdle(now time.Time) int {
	cutoff := now.Add(-s.opts.SessionTTL)

	s.mu.Lock()
	var expired []*workflow.Controller
	for id, bs := range s.sessions {
		if bs.lastSeen.After(cutoff) || bs.ctrl.Snapshot().State == workflow.Uploading {
			continue
		}
		expired = append(expired, bs.ctrl)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, ctrl := range expired {
		_ = ctrl.Close()
	}
	if len(expired) > 0 {
		s.log.WithField("count", len(expired)).Info("Closed idle sessions")
	}
	return len(expired)
}

// Sessions returns the number of live browser sessions
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) periodicCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupIdle(s.now())
		}
	}
}
