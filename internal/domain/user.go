package domain

import (
	"errors"
	"time"
)

// UserStatus is the admission status of a bot user
type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusApproved UserStatus = "approved"
	StatusBlocked  UserStatus = "blocked"
)

// ErrInvalidTransition is returned when a status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransitionTo reports whether the status may move to next.
// Blocked is terminal.
func (s UserStatus) CanTransitionTo(next UserStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusBlocked
	case StatusApproved:
		return next == StatusBlocked
	default:
		return false
	}
}

// Icon returns the status marker used in reports
func (s UserStatus) Icon() string {
	switch s {
	case StatusApproved:
		return "✅"
	case StatusBlocked:
		return "⛔️"
	default:
		return "⏳"
	}
}

// Label returns a user-facing status description
func (s UserStatus) Label() string {
	switch s {
	case StatusApproved:
		return "✅ Tasdiqlangan"
	case StatusBlocked:
		return "⛔️ Bloklangan"
	default:
		return "⏳ Kutilmoqda"
	}
}

// Counter identifies a usage counter on the user record
type Counter string

const (
	CounterClicks        Counter = "clicks"
	CounterReyd          Counter = "reyd_count"
	CounterUsersGathered Counter = "users_gathered"
	CounterAds           Counter = "ads_count"
)

// Valid reports whether c is a known counter
func (c Counter) Valid() bool {
	switch c {
	case CounterClicks, CounterReyd, CounterUsersGathered, CounterAds:
		return true
	}
	return false
}

// User represents a bot user
type User struct {
	ChatID        int64
	Name          string
	Status        UserStatus
	Credential    string
	Clicks        int
	ReydCount     int
	UsersGathered int
	AdsCount      int
	JoinedAt      time.Time
}

// IsApproved reports whether the user may use the bot
func (u *User) IsApproved() bool {
	return u != nil && u.Status == StatusApproved
}

// HasCredential reports whether a login session is stored
func (u *User) HasCredential() bool {
	return u != nil && u.Credential != ""
}

// CounterValue returns the current value of a counter
func (u *User) CounterValue(c Counter) int {
	switch c {
	case CounterClicks:
		return u.Clicks
	case CounterReyd:
		return u.ReydCount
	case CounterUsersGathered:
		return u.UsersGathered
	case CounterAds:
		return u.AdsCount
	}
	return 0
}
