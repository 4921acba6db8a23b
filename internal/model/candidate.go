package model

// Candidate identifies the person sitting an exam. Captured once at session start.
type Candidate struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

// CreateSessionRequest is the payload submitted from the candidate-info form.
type CreateSessionRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=120"`
	ExternalID string `json:"external_id" binding:"required,candidate_id"`
}

// OperatorExitRequest carries the passcode typed by the invigilator.
type OperatorExitRequest struct {
	Passcode string `json:"passcode"`
}
