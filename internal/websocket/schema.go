package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stemsi/exstem-proctor/internal/proctor"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart         Action = "start"
	ActionDisplay       Action = "display"
	ActionVisibility    Action = "visibility"
	ActionBlur          Action = "blur"
	ActionFocus         Action = "focus"
	ActionKey           Action = "key"
	ActionClipboard     Action = "clipboard"
	ActionContextMenu   Action = "contextmenu"
	ActionPrint         Action = "print"
	ActionViewport      Action = "viewport"
	ActionSelect        Action = "select"
	ActionNavigate      Action = "navigate"
	ActionSubmit        Action = "submit"
	ActionConfirmSubmit Action = "confirm_submit"
	ActionCancelSubmit  Action = "cancel_submit"
	ActionOperatorExit  Action = "operator_exit"
	ActionState         Action = "state"
	ActionPing          Action = "ping"
)

// Request is the union of every client frame. Only the fields relevant to
// Action are read.
type Request struct {
	Action Action `json:"action"`

	// start, display
	Locked bool `json:"locked"`
	// visibility
	Hidden bool `json:"hidden"`

	// key
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`
	Meta  bool   `json:"meta"`
	Phase string `json:"phase"`

	// clipboard: copy, cut or paste
	Kind string `json:"kind"`

	// viewport
	OuterWidth  int `json:"outer_width"`
	OuterHeight int `json:"outer_height"`
	InnerWidth  int `json:"inner_width"`
	InnerHeight int `json:"inner_height"`

	// select, navigate
	Question *int `json:"question"`
	Option   *int `json:"option"`

	// operator_exit
	Passcode string `json:"passcode"`
}

// ErrMalformed wraps frames that are not valid JSON requests.
var ErrMalformed = errors.New("malformed request")

// ErrMissingField is returned by Signal when a required field is absent.
type ErrMissingField string

func (e ErrMissingField) Error() string { return fmt.Sprintf("%s is required", string(e)) }

// Decode parses one client frame.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return req, nil
}

// IsInput reports whether the action is a raw surface event for the enforcer.
func (r Request) IsInput() bool {
	switch r.Action {
	case ActionDisplay, ActionVisibility, ActionBlur, ActionFocus, ActionKey,
		ActionClipboard, ActionContextMenu, ActionPrint, ActionViewport:
		return true
	}
	return false
}

// Input converts a surface action into an enforcer input.
func (r Request) Input() proctor.Input {
	in := proctor.Input{Locked: r.Locked, Hidden: r.Hidden}
	switch r.Action {
	case ActionDisplay:
		in.Kind = proctor.InputDisplay
	case ActionVisibility:
		in.Kind = proctor.InputVisibility
	case ActionBlur:
		in.Kind = proctor.InputBlur
	case ActionFocus:
		in.Kind = proctor.InputFocus
	case ActionKey:
		in.Kind = proctor.InputKey
		phase := proctor.KeyDown
		if r.Phase == string(proctor.KeyUp) {
			phase = proctor.KeyUp
		}
		in.Key = proctor.KeyStroke{
			Key:   r.Key,
			Ctrl:  r.Ctrl,
			Shift: r.Shift,
			Alt:   r.Alt,
			Meta:  r.Meta,
			Phase: phase,
		}
	case ActionClipboard:
		in.Kind = proctor.InputClipboard
		in.Clipboard = r.Kind
	case ActionContextMenu:
		in.Kind = proctor.InputContextMenu
	case ActionPrint:
		in.Kind = proctor.InputPrint
	case ActionViewport:
		in.Kind = proctor.InputViewport
		in.Viewport = proctor.Viewport{
			OuterWidth:  r.OuterWidth,
			OuterHeight: r.OuterHeight,
			InnerWidth:  r.InnerWidth,
			InnerHeight: r.InnerHeight,
		}
	}
	return in
}

// Signal converts a candidate command into a state machine signal.
// ok is false for actions that are not commands.
func (r Request) Signal() (sig proctor.Signal, ok bool, err error) {
	switch r.Action {
	case ActionStart:
		return proctor.Start(r.Locked), true, nil
	case ActionSelect:
		if r.Question == nil {
			return proctor.Signal{}, true, ErrMissingField("question")
		}
		if r.Option == nil {
			return proctor.Signal{}, true, ErrMissingField("option")
		}
		return proctor.SelectOption(*r.Question, *r.Option), true, nil
	case ActionNavigate:
		if r.Question == nil {
			return proctor.Signal{}, true, ErrMissingField("question")
		}
		return proctor.Navigate(*r.Question), true, nil
	case ActionSubmit:
		return proctor.Signal{Kind: proctor.SigSubmit}, true, nil
	case ActionConfirmSubmit:
		return proctor.Signal{Kind: proctor.SigConfirmSubmit}, true, nil
	case ActionCancelSubmit:
		return proctor.Signal{Kind: proctor.SigCancelSubmit}, true, nil
	}
	return proctor.Signal{}, false, nil
}

// ─── Events (Server → Client) ───────────────────────────────────────

// Session events are proctor.Event values. The frames below are
// connection-level replies.

type Event string

const (
	EventError Event = "error"
	EventPong  Event = "pong"
)

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
