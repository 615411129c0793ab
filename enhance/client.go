// Package enhance talks to the remote video enhancement service.
//
// The service is a single HTTP endpoint that accepts one video as multipart/form-data
// and answers with the enhanced video as the response body.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultFieldName is the multipart field the service reads the video from
	DefaultFieldName = "video"
	// AcceptHeader is sent with every request, the service answers with MP4
	AcceptHeader = "video/mp4,*/*"

	maxErrorBody = 512
)

var (
	ErrNoEndpoint   = errors.New("enhancement endpoint is not configured")
	ErrTransport    = errors.New("enhancement request failed")
	ErrEmptyPayload = errors.New("received empty file from server")
	ErrTimeout      = errors.New("request timed out")
)

// StatusError is returned when the service answers outside the 2xx range
type StatusError struct {
	Code int
	Body string // best-effort excerpt of the response body
}

func (e *StatusError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("enhancement service returned %d %s", e.Code, e.Body))
}

// Options configures a Client
type Options struct {
	Endpoint   string
	FieldName  string
	HTTPClient *http.Client
	Timeout    time.Duration // 0 disables the request deadline
	Logger     *logrus.Logger
}

// Client posts videos to the enhancement endpoint
type Client struct {
	endpoint   string
	fieldName  string
	httpClient *http.Client
	timeout    time.Duration
	log        *logrus.Entry
}

// Upload is one video to send
type Upload struct {
	Name      string
	MediaType string
	Body      io.Reader
}

// Payload is the enhanced video returned by the service
type Payload struct {
	Data      []byte
	MediaType string
}

// NewClient creates a client. A nil HTTPClient gets a plain client without a cookie
// jar, so no credentials are ever attached to the request.
func NewClient(opts Options) *Client {
	field := strings.TrimSpace(opts.FieldName)
	if field == "" {
		field = DefaultFieldName
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		endpoint:   strings.TrimSpace(opts.Endpoint),
		fieldName:  field,
		httpClient: client,
		timeout:    opts.Timeout,
		log:        logger.WithField("component", "enhance"),
	}
}

// Endpoint returns the configured endpoint URL
func (c *Client) Endpoint() string { return c.endpoint }

// Enhance sends up to the service and returns the enhanced video.
//
// Failures are classified: transport problems wrap ErrTransport, deadline overruns
// return ErrTimeout, non-2xx answers return *StatusError and an empty body returns
// ErrEmptyPayload. Cancelling ctx returns the context error unchanged.
func (c *Client) Enhance(ctx context.Context, up Upload) (*Payload, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	pr, pw := io.Pipe()
	// unblocks the form writer if the request ends before the body is consumed
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, c.fieldName, up))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", AcceptHeader)

	c.log.WithFields(logrus.Fields{
		"endpoint": c.endpoint,
		"file":     up.Name,
		"type":     up.MediaType,
	}).Info("Starting video upload")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// the body is only an explanation, a failed read still reports the status
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.WithField("status", resp.StatusCode).Warn("enhancement service rejected upload")
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	mediaType := resp.Header.Get("Content-Type")
	c.log.WithFields(logrus.Fields{
		"size": fmt.Sprintf("%.2f MB", float64(len(data))/(1024*1024)),
		"type": mediaType,
	}).Info("Successfully received enhanced video")

	return &Payload{Data: data, MediaType: mediaType}, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	c.log.WithError(err).Error("enhancement request failed")
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeForm writes the single file part and closes the multipart writer
func writeForm(mw *multipart.Writer, field string, up Upload) error {
	mediaType := up.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	name := up.Name
	if name == "" {
		name = "upload"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(name)))
	h.Set("Content-Type", mediaType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if up.Body != nil {
		if _, err := io.Copy(part, up.Body); err != nil {
			return err
		}
	}
	return mw.Close()
}
