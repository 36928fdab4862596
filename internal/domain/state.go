package domain

import "time"

// Step represents the current point of a multi-step flow
type Step string

const (
	StepAwaitingPhone    Step = "awaiting_phone"
	StepLoginPending     Step = "login_pending"
	StepAwaitingCode     Step = "awaiting_code"
	StepAwaitingPassword Step = "awaiting_password"

	StepBroadcastRecipients Step = "broadcast_recipients"
	StepBroadcastPayload    Step = "broadcast_payload"
	StepBroadcastConfirm    Step = "broadcast_confirm"

	StepRaidTarget  Step = "raid_target"
	StepRaidCount   Step = "raid_count"
	StepRaidPayload Step = "raid_payload"

	StepScrapeTarget Step = "scrape_target"
	StepScrapeLimit  Step = "scrape_limit"
)

// IsLogin reports whether the step belongs to the login flow
func (s Step) IsLogin() bool {
	switch s {
	case StepAwaitingPhone, StepLoginPending, StepAwaitingCode, StepAwaitingPassword:
		return true
	}
	return false
}

// ConversationState holds temporary data for user's current flow
type ConversationState struct {
	Step       Step
	Phone      string
	Recipients []string
	Target     string
	Count      int
	AdminsOnly bool
	Payload    *Payload
	StartedAt  time.Time
}

// NewState creates a state positioned at step
func NewState(step Step) *ConversationState {
	return &ConversationState{Step: step, StartedAt: time.Now()}
}
