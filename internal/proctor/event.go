package proctor

import "time"

// EventType names a server-to-client event.
type EventType string

const (
	EventState             EventType = "state"
	EventLockdown          EventType = "lockdown"
	EventRelease           EventType = "release"
	EventQuestion          EventType = "question"
	EventAnswered          EventType = "answered"
	EventTimer             EventType = "timer"
	EventWarning           EventType = "warning"
	EventWarningCleared    EventType = "warning_cleared"
	EventRequestLockedMode EventType = "request_locked_mode"
	EventExitLockedMode    EventType = "exit_locked_mode"
	EventRemediation       EventType = "remediation"
	EventConfirmRequired   EventType = "confirm_required"
	EventOperatorPrompt    EventType = "operator_prompt"
	EventSuppressed        EventType = "suppressed"
	EventEliminated        EventType = "eliminated"
	EventSubmitted         EventType = "submitted"
)

// RemediationMessage is shown when locked mode could not be entered.
const RemediationMessage = "Locked mode could not be enabled. Allow full screen when prompted (or press F11), then start again."

// Event is pushed to the attached client.
type Event struct {
	Type  EventType `json:"event"`
	State State     `json:"state,omitempty"`

	Index      *int     `json:"index,omitempty"`
	Option     *int     `json:"option,omitempty"`
	Remaining  *int     `json:"remaining,omitempty"`
	Unanswered *int     `json:"unanswered,omitempty"`
	Allow      []string `json:"allow,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Message    string   `json:"message,omitempty"`
	Input      string   `json:"input,omitempty"`

	CorrectCount *int   `json:"correct_count,omitempty"`
	Total        *int   `json:"total,omitempty"`
	Percentage   string `json:"percentage,omitempty"`
	Passed       *bool  `json:"passed,omitempty"`
	Auto         *bool  `json:"auto,omitempty"`

	Session *Snapshot `json:"session,omitempty"`
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func seconds(d time.Duration) *int {
	// Round up so the display never shows 0 while time remains.
	s := int((d + time.Second - 1) / time.Second)
	if s < 0 {
		s = 0
	}
	return &s
}
