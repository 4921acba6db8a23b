package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPasscode  = errors.New("invalid operator passcode")
	ErrOperatorDisabled = errors.New("operator passcode not configured")
)

// OperatorAuth verifies the invigilator passcode against a bcrypt hash.
type OperatorAuth struct {
	hash []byte
}

// NewOperatorAuth creates an OperatorAuth. An empty hash disables operator access.
func NewOperatorAuth(hash string) *OperatorAuth {
	return &OperatorAuth{hash: []byte(hash)}
}

// Enabled reports whether a passcode hash is configured.
func (a *OperatorAuth) Enabled() bool { return len(a.hash) > 0 }

// Verify checks passcode.
func (a *OperatorAuth) Verify(passcode string) error {
	if !a.Enabled() {
		return ErrOperatorDisabled
	}
	if passcode == "" {
		return ErrInvalidPasscode
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(passcode)); err != nil {
		return ErrInvalidPasscode
	}
	return nil
}

// HashPasscode hashes a passcode with the given bcrypt cost.
func HashPasscode(passcode string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), cost)
	return string(hash), err
}
