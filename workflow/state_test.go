package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/lepinkainen/videoenhance/enhance"
	"github.com/lepinkainen/videoenhance/video"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"Status error", &enhance.StatusError{Code: 502, Body: "bad gateway"}, KindProtocol, "API request failed: 502 bad gateway"},
		{"Status error without body", &enhance.StatusError{Code: 404}, KindProtocol, "API request failed: 404"},
		{"Empty payload", enhance.ErrEmptyPayload, KindEmptyPayload, MsgEmptyPayload},
		{"Timeout", enhance.ErrTimeout, KindTimeout, MsgTimeout},
		{"Unplayable", fmt.Errorf("%w: no video stream found", video.ErrUnplayable), KindUnplayable, MsgUnplayable},
		{"Transport", fmt.Errorf("%w: connection refused", enhance.ErrTransport), KindTransport, "enhancement request failed: connection refused"},
		{"Cancelled", context.Canceled, KindTransport, "upload cancelled"},
		{"Anything else", errors.New("boom"), KindUnknown, MsgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := classify(tt.err)
			if e.Kind != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, e.Kind)
			}
			if e.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, e.Message)
			}
			if !errors.Is(e, tt.err) {
				t.Errorf("Expected the cause to stay reachable")
			}
		})
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"Rejected input", fmt.Errorf("%w: cat.png", ErrRejectedInput), KindRejectedInput, MsgRejectedInput},
		{"Too large", ErrTooLarge, KindRejectedInput, MsgTooLarge},
		{"Busy", ErrBusy, KindUnknown, MsgBusy},
		{"Already explained", &Error{Kind: KindTimeout, Message: "custom"}, KindTimeout, "custom"},
		{"Falls back to classify", enhance.ErrEmptyPayload, KindEmptyPayload, MsgEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Explain(tt.err)
			if e.Kind != tt.kind || e.Message != tt.message {
				t.Errorf("Explain() = %s %q, expected %s %q", e.Kind, e.Message, tt.kind, tt.message)
			}
		})
	}
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]State{"state": Succeeded})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if string(data) != `{"state":"succeeded"}` {
		t.Errorf("Unexpected JSON %s", data)
	}
	if got := State(42).String(); got != "state(42)" {
		t.Errorf("Unexpected name for unknown state: %s", got)
	}
}

func TestState_UnmarshalText(t *testing.T) {
	var decoded struct {
		State State `json:"state"`
	}
	if err := json.Unmarshal([]byte(`{"state":"failed"}`), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.State != Failed {
		t.Errorf("Expected Failed, got %s", decoded.State)
	}
	if err := json.Unmarshal([]byte(`{"state":"paused"}`), &decoded); err == nil {
		t.Error("Expected error for unknown state, got nil")
	}
}
