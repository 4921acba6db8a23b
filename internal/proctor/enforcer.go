package proctor

import (
	"sort"
	"time"
)

// Interceptor names one surface hook owned by the enforcer.
type Interceptor string

const (
	InterceptKeyboard    Interceptor = "keyboard"
	InterceptContextMenu Interceptor = "contextmenu"
	InterceptClipboard   Interceptor = "clipboard"
	InterceptPrint       Interceptor = "print"
	InterceptDisplayMode Interceptor = "display_mode"
	InterceptVisibility  Interceptor = "visibility"
	InterceptFocus       Interceptor = "focus"
	InterceptDevTools    Interceptor = "devtools"
)

var allInterceptors = []Interceptor{
	InterceptKeyboard,
	InterceptContextMenu,
	InterceptClipboard,
	InterceptPrint,
	InterceptDisplayMode,
	InterceptVisibility,
	InterceptFocus,
	InterceptDevTools,
}

// AllowList is the set of chords passed through while locked.
var AllowList = []string{"F12 (during grace window)", "Alt+Q"}

// Enforcer classifies raw input into signals. It never changes session
// state itself; emitted signals go back through the Machine.
//
// Enforcer is not safe for concurrent use. Session confines it to the
// actor goroutine; timer callbacks re-enter through post.
type Enforcer struct {
	clock     Clock
	debounce  time.Duration
	heuristic DevToolsHeuristic
	emit      func(Signal)
	post      func(func())

	installed   map[Interceptor]bool
	focused     bool
	blurTimer   Timer
	blurGen     uint64
	graceWindow bool
}

// NewEnforcer wires an enforcer. emit runs on the owner goroutine; post must
// schedule a function onto that same goroutine.
func NewEnforcer(clock Clock, debounce time.Duration, h DevToolsHeuristic, emit func(Signal), post func(func())) *Enforcer {
	return &Enforcer{
		clock:     clock,
		debounce:  debounce,
		heuristic: h,
		emit:      emit,
		post:      post,
		installed: map[Interceptor]bool{},
		focused:   true,
	}
}

// Install registers every interceptor. Calling it twice is harmless.
func (e *Enforcer) Install() {
	for _, i := range allInterceptors {
		e.installed[i] = true
	}
	e.focused = true
	if e.heuristic != nil {
		e.heuristic.Reset()
	}
}

// Remove unregisters every interceptor and cancels pending debounces.
func (e *Enforcer) Remove() {
	clear(e.installed)
	e.cancelBlur()
	e.graceWindow = false
}

// Installed reports whether the interceptors are active.
func (e *Enforcer) Installed() bool { return len(e.installed) > 0 }

// Interceptors returns the registered interceptors in name order.
func (e *Enforcer) Interceptors() []Interceptor {
	out := make([]Interceptor, 0, len(e.installed))
	for i := range e.installed {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// SetGraceWindow enables the recovery key.
func (e *Enforcer) SetGraceWindow(on bool) { e.graceWindow = on }

// Observe classifies in and emits any resulting signal.
func (e *Enforcer) Observe(in Input) Outcome {
	if !e.Installed() {
		return Outcome{Disposition: DispositionIgnored}
	}

	switch in.Kind {
	case InputKey:
		return e.key(in.Key)
	case InputClipboard, InputContextMenu:
		return Outcome{Disposition: DispositionSuppressed}
	case InputPrint:
		return e.violate(ReasonPrint)
	case InputDisplay:
		if in.Locked {
			e.emit(Signal{Kind: SigDisplayModeRestored})
		} else {
			e.emit(Signal{Kind: SigDisplayModeLost})
		}
		return Outcome{Disposition: DispositionObserved}
	case InputVisibility:
		if in.Hidden {
			return e.violate(ReasonTabSwitch)
		}
		return Outcome{Disposition: DispositionObserved}
	case InputBlur:
		e.blur()
		return Outcome{Disposition: DispositionObserved}
	case InputFocus:
		e.focused = true
		e.cancelBlur()
		return Outcome{Disposition: DispositionObserved}
	case InputViewport:
		if e.heuristic != nil && e.heuristic.Sample(in.Viewport) {
			return e.violate(ReasonDevToolsDetected)
		}
		return Outcome{Disposition: DispositionObserved}
	}
	return Outcome{Disposition: DispositionIgnored}
}

func (e *Enforcer) key(k KeyStroke) Outcome {
	// Screenshot tools fire keyup only on several platforms.
	if k.is("PrintScreen") {
		return e.violate(ReasonScreenshot)
	}
	if k.Phase == KeyUp {
		return Outcome{Disposition: DispositionSuppressed}
	}

	devtoolsChord := (k.Ctrl && k.Shift) || (k.Meta && k.Alt)
	switch {
	case devtoolsChord && (k.is("i") || k.is("j") || k.is("c")):
		return e.violate(ReasonDevToolsShortcut)
	case (k.Ctrl || (k.Meta && k.Alt)) && k.is("u"):
		return e.violate(ReasonViewSource)
	case (k.Ctrl || k.Meta) && k.is("p"):
		return e.violate(ReasonPrint)
	case k.is("F12"):
		if e.graceWindow {
			e.emit(Signal{Kind: SigRecoveryKey})
			return Outcome{Disposition: DispositionAllowed}
		}
		return Outcome{Disposition: DispositionSuppressed}
	case k.Alt && !k.Ctrl && !k.Meta && k.is("q"):
		return Outcome{Disposition: DispositionAllowed, OperatorPrompt: true}
	}
	return Outcome{Disposition: DispositionSuppressed}
}

func (e *Enforcer) violate(reason string) Outcome {
	e.emit(HardViolation(reason))
	return Outcome{Disposition: DispositionViolation, Reason: reason}
}

func (e *Enforcer) blur() {
	e.focused = false
	e.cancelBlur()
	gen := e.blurGen
	e.blurTimer = e.clock.AfterFunc(e.debounce, func() {
		e.post(func() { e.confirmBlur(gen) })
	})
}

func (e *Enforcer) confirmBlur(gen uint64) {
	if gen != e.blurGen || e.focused || !e.Installed() {
		return
	}
	e.blurTimer = nil
	e.emit(HardViolation(ReasonFocusLost))
}

func (e *Enforcer) cancelBlur() {
	e.blurGen++
	if e.blurTimer != nil {
		e.blurTimer.Stop()
		e.blurTimer = nil
	}
}
