package proctor

import "strings"

// InputKind names a raw event reported by the candidate's browser.
type InputKind string

const (
	InputKey         InputKind = "key"
	InputClipboard   InputKind = "clipboard"
	InputContextMenu InputKind = "contextmenu"
	InputPrint       InputKind = "print"
	InputDisplay     InputKind = "display"
	InputVisibility  InputKind = "visibility"
	InputBlur        InputKind = "blur"
	InputFocus       InputKind = "focus"
	InputViewport    InputKind = "viewport"
)

// KeyPhase distinguishes keydown from keyup.
type KeyPhase string

const (
	KeyDown KeyPhase = "down"
	KeyUp   KeyPhase = "up"
)

// KeyStroke is a single key event with its modifier state.
type KeyStroke struct {
	Key   string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
	Phase KeyPhase
}

func (k KeyStroke) is(name string) bool { return strings.EqualFold(k.Key, name) }

// String renders the chord, e.g. "Ctrl+Shift+I".
func (k KeyStroke) String() string {
	var b strings.Builder
	if k.Ctrl {
		b.WriteString("Ctrl+")
	}
	if k.Meta {
		b.WriteString("Meta+")
	}
	if k.Alt {
		b.WriteString("Alt+")
	}
	if k.Shift {
		b.WriteString("Shift+")
	}
	key := k.Key
	if len(key) == 1 {
		key = strings.ToUpper(key)
	}
	b.WriteString(key)
	return b.String()
}

// Viewport is a window geometry sample used by the devtools heuristic.
type Viewport struct {
	OuterWidth  int
	OuterHeight int
	InnerWidth  int
	InnerHeight int
}

// Input is one raw surface event.
type Input struct {
	Kind      InputKind
	Key       KeyStroke
	Clipboard string
	Locked    bool
	Hidden    bool
	Viewport  Viewport
}

// Disposition is how the enforcer handled an input.
type Disposition string

const (
	DispositionIgnored    Disposition = "ignored"
	DispositionSuppressed Disposition = "suppressed"
	DispositionAllowed    Disposition = "allowed"
	DispositionObserved   Disposition = "observed"
	DispositionViolation  Disposition = "violation"
)

// Outcome is returned to the caller so the client can be told what happened.
type Outcome struct {
	Disposition    Disposition
	Reason         string
	OperatorPrompt bool
}
