package proctor

// State enumerates the lifecycle of an exam session.
type State string

const (
	StateNotStarted  State = "NOT_STARTED"
	StateActive      State = "ACTIVE"
	StateGracePeriod State = "GRACE_PERIOD"
	StateEliminated  State = "ELIMINATED"
	StateSubmitted   State = "SUBMITTED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateEliminated || s == StateSubmitted
}

// Locked reports whether the lockdown interceptors must be installed.
func (s State) Locked() bool {
	return s == StateActive || s == StateGracePeriod
}

// Elimination reasons shown to the candidate and written to the audit log.
const (
	ReasonGraceExpired     = "Failed to return to locked mode within grace window"
	ReasonDevToolsShortcut = "Attempted to open developer tools"
	ReasonViewSource       = "Attempted to view page source"
	ReasonDevToolsDetected = "Developer tools detected"
	ReasonPrint            = "Attempted to print the exam"
	ReasonTabSwitch        = "Switched to another tab or window"
	ReasonFocusLost        = "Lost window focus - possible tab switching"
	ReasonScreenshot       = "Screenshot attempt detected"
	ReasonOperatorExit     = "Exam exited by operator"
)
