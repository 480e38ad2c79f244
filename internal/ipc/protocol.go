package ipc

import (
	"time"

	"github.com/hyprconnect/hyprconnect/internal/action"
	"github.com/hyprconnect/hyprconnect/internal/failure"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

// MaxLineBytes bounds a single request line.
const MaxLineBytes = 64 * 1024

// Read-only command tags. Mutating commands use the action package names.
const (
	CmdStatus        = "status"
	CmdDevices       = "devices"
	CmdListAvailable = "list_available"
)

// Request is one line sent by a client.
type Request struct {
	ID      string     `json:"id,omitempty"`
	Command string     `json:"command"`
	Device  string     `json:"device,omitempty"`
	JSON    bool       `json:"json,omitempty"`
	Path    string     `json:"path,omitempty"`
	URL     string     `json:"url,omitempty"`
	Message string     `json:"message,omitempty"`
	Media   *MediaArgs `json:"media,omitempty"`
}

// MediaArgs is the wire form of a media operation.
type MediaArgs struct {
	Op      string `json:"op"`
	DeltaMS int64  `json:"delta_ms,omitempty"`
	Volume  *int   `json:"volume,omitempty"`
	Name    string `json:"name,omitempty"`
}

func (r Request) action() action.Request {
	req := action.Request{
		Command: r.Command,
		Device:  r.Device,
		Path:    r.Path,
		URL:     r.URL,
		Message: r.Message,
	}
	if r.Media != nil {
		req.Media = action.MediaArgs{
			Op:      r.Media.Op,
			DeltaMS: r.Media.DeltaMS,
			Volume:  r.Media.Volume,
			Name:    r.Media.Name,
		}
	}
	return req
}

// Response is the single line written back.
type Response struct {
	ID     string         `json:"id,omitempty"`
	OK     bool           `json:"ok"`
	Error  *Error         `json:"error,omitempty"`
	State  *State         `json:"state,omitempty"`
	Result *action.Result `json:"result,omitempty"`
}

// Error is a typed failure on the wire.
type Error struct {
	Kind    failure.Kind `json:"kind"`
	Message string       `json:"message"`
}

// Err converts a failed response back into a *failure.Error.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == nil {
		return failure.New(failure.ProtocolError, "request failed without an error")
	}
	return &failure.Error{Kind: r.Error.Kind, Message: r.Error.Message}
}

// State is a view of one cache generation.
type State struct {
	Generation uint64         `json:"generation"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Devices    []state.Device `json:"devices"`
	// Device is the device status would target, when one resolves.
	Device  *state.Device `json:"device,omitempty"`
	Backend *Backend      `json:"backend,omitempty"`
}

// Backend reports reconciliation health.
type Backend struct {
	Online              bool      `json:"online"`
	LastError           string    `json:"last_error,omitempty"`
	LastAttempt         time.Time `json:"last_attempt,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures,omitempty"`
}

func errorResponse(id string, err error) Response {
	return Response{
		ID: id,
		Error: &Error{
			Kind:    failure.KindOf(err, failure.ActionFailed),
			Message: err.Error(),
		},
	}
}
