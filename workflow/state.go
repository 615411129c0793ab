package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lepinkainen/videoenhance/enhance"
	"github.com/lepinkainen/videoenhance/objecturl"
	"github.com/lepinkainen/videoenhance/video"
)

// State is one of the four mutually exclusive workflow states
type State int

const (
	Idle State = iota
	Uploading
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText lets snapshots encode the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{Idle, Uploading, Succeeded, Failed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown workflow state %q", text)
}

// Kind classifies why an upload failed
type Kind string

const (
	KindRejectedInput Kind = "rejected_input"
	KindTransport     Kind = "transport"
	KindProtocol      Kind = "protocol"
	KindEmptyPayload  Kind = "empty_payload"
	KindUnplayable    Kind = "unplayable"
	KindTimeout       Kind = "timeout"
	KindUnknown       Kind = "unknown"
)

// User-facing failure messages
const (
	MsgRejectedInput = "Please select a video file"
	MsgTooLarge      = "The selected file is too large"
	MsgEmptyPayload  = "Received empty file from server"
	MsgUnplayable    = "The received video cannot be played. Please try again."
	MsgTimeout       = "request timed out"
	MsgBusy          = "An upload is already in progress"
	MsgGeneric       = "An error occurred while processing the video"
)

var (
	ErrRejectedInput = errors.New("file is not a video")
	ErrTooLarge      = errors.New("file is too large")
	ErrBusy          = errors.New("an upload is already in progress")
	ErrClosed        = errors.New("workflow is closed")
	ErrNoResult      = errors.New("no enhanced video available")
)

// Error is the failure a workflow ends up in
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// FileInfo describes the selected file without its contents
type FileInfo struct {
	Name      string
	MediaType string
	Size      int64
}

// Result holds the two playable videos of a successful run. Both handles are owned by
// the workflow and revoked when it resets or closes.
type Result struct {
	Before     *objecturl.Handle
	After      *objecturl.Handle
	Metadata   *video.Metadata
	Comparison *video.Comparison
}

// Snapshot is a copy of the observable workflow state
type Snapshot struct {
	Seq        uint64
	State      State
	Finalizing bool // success sub-state shown before the result
	Progress   float64
	File       *FileInfo
	Result     *Result
	Err        *Error
}

// classify maps an upload or validation failure to what the user gets to see
func classify(err error) *Error {
	var se *enhance.StatusError
	switch {
	case errors.As(err, &se):
		return &Error{
			Kind:    KindProtocol,
			Message: strings.TrimSpace(fmt.Sprintf("API request failed: %d %s", se.Code, se.Body)),
			Err:     err,
		}
	case errors.Is(err, enhance.ErrEmptyPayload):
		return &Error{Kind: KindEmptyPayload, Message: MsgEmptyPayload, Err: err}
	case errors.Is(err, enhance.ErrTimeout):
		return &Error{Kind: KindTimeout, Message: MsgTimeout, Err: err}
	case errors.Is(err, video.ErrUnplayable):
		return &Error{Kind: KindUnplayable, Message: MsgUnplayable, Err: err}
	case errors.Is(err, enhance.ErrTransport):
		return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindTransport, Message: "upload cancelled", Err: err}
	}
	return &Error{Kind: KindUnknown, Message: MsgGeneric, Err: err}
}

// Explain turns an error returned by Submit, or the cause of a failed run, into what
// the user gets to see
func Explain(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, ErrRejectedInput):
		return &Error{Kind: KindRejectedInput, Message: MsgRejectedInput, Err: err}
	case errors.Is(err, ErrTooLarge):
		return &Error{Kind: KindRejectedInput, Message: MsgTooLarge, Err: err}
	case errors.Is(err, ErrBusy):
		return &Error{Kind: KindUnknown, Message: MsgBusy, Err: err}
	}
	return classify(err)
}
