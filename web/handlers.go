package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lepinkainen/videoenhance/enhance"
	"github.com/lepinkainen/videoenhance/video"
	"github.com/lepinkainen/videoenhance/workflow"
)

const msgPasswordMismatch = "Passwords do not match"

// multipart framing on top of the video itself
const uploadOverhead = 1024 * 1024

func (s *Server) routes() {
	e := s.e

	e.GET("/", s.homeHandler)
	e.GET("/upload", s.uploadHandler)
	e.POST("/upload", s.uploadPostHandler, middleware.BodyLimit(bodyLimit(s.cfg.MaxUploadBytes())))
	e.GET("/upload/status", s.statusHandler)
	e.POST("/upload/reset", s.resetHandler)
	e.GET("/download", s.downloadHandler)
	e.GET("/login", s.loginHandler)
	e.POST("/login", s.loginPostHandler)
	e.GET("/register", s.registerHandler)
	e.POST("/register", s.registerPostHandler)
	e.GET("/subscribe", s.subscribeHandler)

	s.registry.RegisterRoutes(e, s.ownBlobsOnly)
}

func bodyLimit(maxBytes int64) string {
	return strconv.FormatInt(maxBytes+uploadOverhead, 10) + "B"
}

// uploadPage is what upload.html renders
type uploadPage struct {
	Status      StatusResponse
	Error       *workflow.Error
	MaxUploadMB int
}

func (s *Server) homeHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "home.html", map[string]interface{}{"plans": Plans})
}

func (s *Server) uploadHandler(c echo.Context) error {
	ctrl, err := s.workflowFor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return s.renderUpload(c, http.StatusOK, ctrl.Snapshot(), nil)
}

func (s *Server) renderUpload(c echo.Context, code int, snap workflow.Snapshot, uerr *workflow.Error) error {
	return c.Render(code, "upload.html", uploadPage{
		Status:      newStatusResponse(snap),
		Error:       uerr,
		MaxUploadMB: s.cfg.MaxUploadMB,
	})
}

// uploadPostHandler starts the workflow of this session with the first file of the
// "video" field. The upload keeps running after the response.
func (s *Server) uploadPostHandler(c echo.Context) error {
	ctrl, err := s.workflowFor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	file, err := readUpload(c)
	if err == nil {
		// the request context ends with this response, the upload must not
		err = ctrl.Submit(s.base, file)
	}
	if err != nil {
		uerr := workflow.Explain(err)
		s.log.WithError(err).Warn("Upload not accepted")
		code := http.StatusBadRequest
		switch {
		case errors.Is(err, workflow.ErrTooLarge):
			code = http.StatusRequestEntityTooLarge
		case errors.Is(err, workflow.ErrBusy):
			code = http.StatusConflict
		}
		if wantsJSON(c) {
			return c.JSON(code, ErrorResponse{Kind: uerr.Kind, Message: uerr.Message})
		}
		return s.renderUpload(c, code, ctrl.Snapshot(), uerr)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusAccepted, newStatusResponse(ctrl.Snapshot()))
	}
	return c.Redirect(http.StatusSeeOther, "/upload")
}

// readUpload loads the first file of the video field. A missing file counts as a
// rejected selection.
func readUpload(c echo.Context) (workflow.SelectedFile, error) {
	fh, err := c.FormFile(enhance.DefaultFieldName)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return workflow.SelectedFile{}, fmt.Errorf("%w: %v", workflow.ErrTooLarge, err)
		}
		return workflow.SelectedFile{}, fmt.Errorf("%w: no file in field %q", workflow.ErrRejectedInput, enhance.DefaultFieldName)
	}
	return readFileHeader(fh)
}

func readFileHeader(fh *multipart.FileHeader) (workflow.SelectedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return workflow.SelectedFile{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return workflow.SelectedFile{}, fmt.Errorf("failed to read upload: %w", err)
	}

	mediaType := fh.Header.Get(echo.HeaderContentType)
	if mediaType == "" || mediaType == echo.MIMEOctetStream {
		mediaType = video.SniffMediaType(fh.Filename, data)
	}
	return workflow.SelectedFile{
		Name:      fh.Filename,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}

func (s *Server) statusHandler(c echo.Context) error {
	ctrl, err := s.workflowFor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, newStatusResponse(ctrl.Snapshot()))
}

func (s *Server) resetHandler(c echo.Context) error {
	ctrl, err := s.workflowFor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	ctrl.Reset()
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, newStatusResponse(ctrl.Snapshot()))
	}
	return c.Redirect(http.StatusSeeOther, "/upload")
}

func (s *Server) downloadHandler(c echo.Context) error {
	ctrl, err := s.workflowFor(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	snap := ctrl.Snapshot()
	if snap.State != workflow.Succeeded || snap.Result == nil {
		return echo.NewHTTPError(http.StatusNotFound, workflow.ErrNoResult.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, snap.Result.After.MediaType())
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", workflow.DownloadName))
	res.WriteHeader(http.StatusOK)

	// a reset racing the download cuts the body short, the headers are already out
	if _, err := ctrl.Download(res); err != nil {
		s.log.WithError(err).Warn("Download interrupted")
	}
	return nil
}

func (s *Server) loginHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", nil)
}

// loginPostHandler only simulates the round trip, there is no account backend
func (s *Server) loginPostHandler(c echo.Context) error {
	if err := s.simulateAuth(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) registerHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", map[string]interface{}{})
}

func (s *Server) registerPostHandler(c echo.Context) error {
	if c.FormValue("password") != c.FormValue("confirm_password") {
		return c.Render(http.StatusBadRequest, "register.html", map[string]interface{}{
			"error": msgPasswordMismatch,
			"name":  c.FormValue("name"),
			"email": c.FormValue("email"),
		})
	}
	if err := s.simulateAuth(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) simulateAuth(c echo.Context) error {
	if s.opts.AuthDelay == 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.AuthDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}

func (s *Server) subscribeHandler(c echo.Context) error {
	selected := DefaultPlanID
	if id, err := strconv.Atoi(c.QueryParam("plan")); err == nil {
		for _, p := range Plans {
			if p.ID == id {
				selected = id
			}
		}
	}
	yearly := c.QueryParam("cycle") == "yearly"

	return c.Render(http.StatusOK, "subscribe.html", map[string]interface{}{
		"plans":    Plans,
		"selected": selected,
		"yearly":   yearly,
	})
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
