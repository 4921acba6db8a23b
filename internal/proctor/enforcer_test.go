package proctor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enforcerHarness struct {
	clock   *fakeClock
	e       *Enforcer
	signals []Signal
}

func newEnforcerHarness() *enforcerHarness {
	h := &enforcerHarness{clock: newFakeClock()}
	h.e = NewEnforcer(h.clock, 100*time.Millisecond, NewDimensionHeuristic(160, 2),
		func(sig Signal) { h.signals = append(h.signals, sig) },
		func(fn func()) { fn() })
	h.e.Install()
	return h
}

func key(k string, mods ...string) Input {
	ks := KeyStroke{Key: k, Phase: KeyDown}
	for _, m := range mods {
		switch m {
		case "ctrl":
			ks.Ctrl = true
		case "shift":
			ks.Shift = true
		case "alt":
			ks.Alt = true
		case "meta":
			ks.Meta = true
		}
	}
	return Input{Kind: InputKey, Key: ks}
}

func TestEnforcerKeyClassification(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		want   Disposition
		reason string
	}{
		{"devtools inspector", key("I", "ctrl", "shift"), DispositionViolation, ReasonDevToolsShortcut},
		{"devtools console", key("j", "ctrl", "shift"), DispositionViolation, ReasonDevToolsShortcut},
		{"devtools picker", key("C", "ctrl", "shift"), DispositionViolation, ReasonDevToolsShortcut},
		{"mac devtools", key("i", "meta", "alt"), DispositionViolation, ReasonDevToolsShortcut},
		{"view source", key("u", "ctrl"), DispositionViolation, ReasonViewSource},
		{"print shortcut", key("p", "ctrl"), DispositionViolation, ReasonPrint},
		{"print screen", Input{Kind: InputKey, Key: KeyStroke{Key: "PrintScreen", Phase: KeyUp}}, DispositionViolation, ReasonScreenshot},
		{"copy", key("c", "ctrl"), DispositionSuppressed, ""},
		{"reload", key("F5"), DispositionSuppressed, ""},
		{"escape", key("Escape"), DispositionSuppressed, ""},
		{"f12 outside grace", key("F12"), DispositionSuppressed, ""},
		{"operator chord", key("q", "alt"), DispositionAllowed, ""},
		{"plain letter", key("a"), DispositionSuppressed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newEnforcerHarness()
			out := h.e.Observe(tt.in)
			assert.Equal(t, tt.want, out.Disposition)
			assert.Equal(t, tt.reason, out.Reason)
			if tt.want == DispositionViolation {
				require.Len(t, h.signals, 1)
				assert.Equal(t, SigHardViolation, h.signals[0].Kind)
				assert.Equal(t, tt.reason, h.signals[0].Reason)
			} else {
				assert.Empty(t, h.signals)
			}
		})
	}
}

func TestEnforcerOperatorPrompt(t *testing.T) {
	h := newEnforcerHarness()
	out := h.e.Observe(key("Q", "alt"))
	assert.True(t, out.OperatorPrompt)
	assert.Empty(t, h.signals, "the prompt alone never changes state")
}

func TestEnforcerRecoveryKeyOnlyDuringGrace(t *testing.T) {
	h := newEnforcerHarness()
	h.e.SetGraceWindow(true)

	out := h.e.Observe(key("F12"))
	assert.Equal(t, DispositionAllowed, out.Disposition)
	require.Len(t, h.signals, 1)
	assert.Equal(t, SigRecoveryKey, h.signals[0].Kind)
}

func TestEnforcerSurfaceEvents(t *testing.T) {
	h := newEnforcerHarness()

	assert.Equal(t, DispositionSuppressed, h.e.Observe(Input{Kind: InputClipboard, Clipboard: "paste"}).Disposition)
	assert.Equal(t, DispositionSuppressed, h.e.Observe(Input{Kind: InputContextMenu}).Disposition)
	assert.Empty(t, h.signals)

	h.e.Observe(Input{Kind: InputDisplay, Locked: false})
	h.e.Observe(Input{Kind: InputDisplay, Locked: true})
	h.e.Observe(Input{Kind: InputVisibility, Hidden: false})
	require.Len(t, h.signals, 2)
	assert.Equal(t, SigDisplayModeLost, h.signals[0].Kind)
	assert.Equal(t, SigDisplayModeRestored, h.signals[1].Kind)

	out := h.e.Observe(Input{Kind: InputVisibility, Hidden: true})
	assert.Equal(t, ReasonTabSwitch, out.Reason)
	out = h.e.Observe(Input{Kind: InputPrint})
	assert.Equal(t, ReasonPrint, out.Reason)
}

func TestEnforcerBlurDebounce(t *testing.T) {
	t.Run("refocus within window", func(t *testing.T) {
		h := newEnforcerHarness()
		h.e.Observe(Input{Kind: InputBlur})
		h.clock.Advance(50 * time.Millisecond)
		h.e.Observe(Input{Kind: InputFocus})
		h.clock.Advance(time.Second)
		assert.Empty(t, h.signals)
	})

	t.Run("focus stays lost", func(t *testing.T) {
		h := newEnforcerHarness()
		h.e.Observe(Input{Kind: InputBlur})
		h.clock.Advance(100 * time.Millisecond)
		require.Len(t, h.signals, 1)
		assert.Equal(t, ReasonFocusLost, h.signals[0].Reason)
	})

	t.Run("removed before debounce", func(t *testing.T) {
		h := newEnforcerHarness()
		h.e.Observe(Input{Kind: InputBlur})
		h.e.Remove()
		h.clock.Advance(time.Second)
		assert.Empty(t, h.signals)
	})
}

func TestEnforcerDevToolsHeuristic(t *testing.T) {
	h := newEnforcerHarness()
	docked := Input{Kind: InputViewport, Viewport: Viewport{OuterWidth: 1600, OuterHeight: 900, InnerWidth: 1200, InnerHeight: 880}}
	normal := Input{Kind: InputViewport, Viewport: Viewport{OuterWidth: 1600, OuterHeight: 900, InnerWidth: 1600, InnerHeight: 820}}

	h.e.Observe(docked)
	h.e.Observe(normal)
	h.e.Observe(docked)
	assert.Empty(t, h.signals, "a single wide sample is not sustained")

	out := h.e.Observe(docked)
	assert.Equal(t, ReasonDevToolsDetected, out.Reason)
	h.e.Observe(docked)
	assert.Len(t, h.signals, 1, "heuristic trips once")
}

func TestEnforcerInstallRemove(t *testing.T) {
	h := newEnforcerHarness()
	assert.Len(t, h.e.Interceptors(), len(allInterceptors))
	h.e.Install()
	assert.Len(t, h.e.Interceptors(), len(allInterceptors))

	h.e.Remove()
	h.e.Remove()
	assert.Empty(t, h.e.Interceptors())
	assert.Equal(t, DispositionIgnored, h.e.Observe(key("i", "ctrl", "shift")).Disposition)
	assert.Empty(t, h.signals)
}
