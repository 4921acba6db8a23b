package proctor

import (
	"fmt"
	"time"
)

// SignalKind is an input to the session state machine.
type SignalKind int

const (
	SigUnknown SignalKind = iota
	SigStart
	SigDisplayModeLost
	SigDisplayModeRestored
	SigGraceTick
	SigGraceExpired
	SigExamTick
	SigExamExpired
	SigHardViolation
	SigRecoveryKey
	SigSelectOption
	SigNavigate
	SigSubmit
	SigConfirmSubmit
	SigCancelSubmit
	SigOperatorExit
)

var signalNames = map[SignalKind]string{
	SigUnknown:             "unknown",
	SigStart:               "start",
	SigDisplayModeLost:     "display_mode_lost",
	SigDisplayModeRestored: "display_mode_restored",
	SigGraceTick:           "grace_tick",
	SigGraceExpired:        "grace_expired",
	SigExamTick:            "exam_tick",
	SigExamExpired:         "exam_expired",
	SigHardViolation:       "hard_violation",
	SigRecoveryKey:         "recovery_key",
	SigSelectOption:        "select_option",
	SigNavigate:            "navigate",
	SigSubmit:              "submit",
	SigConfirmSubmit:       "confirm_submit",
	SigCancelSubmit:        "cancel_submit",
	SigOperatorExit:        "operator_exit",
}

func (k SignalKind) String() string {
	if n, ok := signalNames[k]; ok {
		return n
	}
	return fmt.Sprintf("signal(%d)", int(k))
}

// Signal carries optional metadata for a transition.
type Signal struct {
	Kind SignalKind

	// Locked is the outcome of the locked-mode request (SigStart).
	Locked bool
	// Question and Option address the ledger (SigSelectOption, SigNavigate).
	Question int
	Option   int
	// Reason classifies a hard violation.
	Reason string
	// Remaining is the countdown value for tick signals.
	Remaining time.Duration
	// Gen scopes timer signals to the countdown that produced them.
	// Zero is unscoped.
	Gen uint64
}

// Start builds the signal sent once the candidate attempted to enter locked mode.
func Start(locked bool) Signal { return Signal{Kind: SigStart, Locked: locked} }

// SelectOption builds a ledger write.
func SelectOption(question, option int) Signal {
	return Signal{Kind: SigSelectOption, Question: question, Option: option}
}

// Navigate builds a question pointer move.
func Navigate(question int) Signal { return Signal{Kind: SigNavigate, Question: question} }

// HardViolation builds an immediate-elimination signal.
func HardViolation(reason string) Signal { return Signal{Kind: SigHardViolation, Reason: reason} }
