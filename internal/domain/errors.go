package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures reported by the account client
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	// ErrFloodWait carries a mandated wait duration
	ErrFloodWait
	// ErrAbuse is peer flood / spam detection without a duration
	ErrAbuse
	ErrInvalidCode
	ErrCodeExpired
	ErrInvalidPhone
	ErrInvalidPassword
	// ErrSessionInvalid means the stored credential no longer works
	ErrSessionInvalid
	ErrNotFound
	ErrForbidden
	// ErrMembersHidden means the member list cannot be enumerated
	ErrMembersHidden
	ErrAlreadyJoined
)

var kindNames = map[ErrorKind]string{
	ErrUnknown:         "unknown",
	ErrFloodWait:       "flood_wait",
	ErrAbuse:           "abuse",
	ErrInvalidCode:     "invalid_code",
	ErrCodeExpired:     "code_expired",
	ErrInvalidPhone:    "invalid_phone",
	ErrInvalidPassword: "invalid_password",
	ErrSessionInvalid:  "session_invalid",
	ErrNotFound:        "not_found",
	ErrForbidden:       "forbidden",
	ErrMembersHidden:   "members_hidden",
	ErrAlreadyJoined:   "already_joined",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AccountError is a classified account client failure
type AccountError struct {
	Kind ErrorKind
	Wait time.Duration
	Err  error
}

func (e *AccountError) Error() string {
	msg := e.Kind.String()
	if e.Kind == ErrFloodWait {
		msg = fmt.Sprintf("%s %s", msg, e.Wait)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

// NewAccountError wraps err with a kind
func NewAccountError(kind ErrorKind, err error) *AccountError {
	return &AccountError{Kind: kind, Err: err}
}

// FloodWaitError creates a flood wait error for d
func FloodWaitError(d time.Duration, err error) *AccountError {
	return &AccountError{Kind: ErrFloodWait, Wait: d, Err: err}
}

// KindOf returns the kind of err, or ErrUnknown
func KindOf(err error) ErrorKind {
	var ae *AccountError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ErrUnknown
}

// IsKind reports whether err is an AccountError of kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// FloodWait returns the mandated wait if err is a flood wait
func FloodWait(err error) (time.Duration, bool) {
	var ae *AccountError
	if errors.As(err, &ae) && ae.Kind == ErrFloodWait {
		return ae.Wait, true
	}
	return 0, false
}
