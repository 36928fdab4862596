// Package account describes the secondary Telegram client that acts on
// behalf of a logged-in user.
package account

import (
	"context"

	"reydbot/internal/domain"
)

// EntityKind is the type of a resolved peer
type EntityKind string

const (
	KindUser    EntityKind = "user"
	KindChat    EntityKind = "chat"
	KindChannel EntityKind = "channel"
)

// Entity is a resolved user, basic group or channel/supergroup
type Entity struct {
	ID         int64
	AccessHash int64
	Kind       EntityKind
	Title      string
	Username   string
	// Broadcast is set for channels without group semantics
	Broadcast bool
}

// IsGroup reports whether the entity accepts members
func (e Entity) IsGroup() bool {
	return e.Kind == KindChat || (e.Kind == KindChannel && !e.Broadcast)
}

// Member is a participant or message author
type Member struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}

// Button is an inline button on an incoming message
type Button struct {
	Text string
	// Data is the callback payload; empty for URL and other non-callback buttons
	Data []byte
}

// Message is an incoming message seen by the account
type Message struct {
	ID      int
	Chat    Entity
	Sender  Member
	Text    string
	Out     bool
	Buttons [][]Button
}

// MessageHandler receives incoming messages
type MessageHandler func(ctx context.Context, msg Message)

// Client is a live, authorized account connection
type Client interface {
	// Resolve finds a peer by username or invite target
	Resolve(ctx context.Context, target Target) (Entity, error)
	// Join enters a group. Already being a member is not an error.
	Join(ctx context.Context, target Target, entity Entity) (Entity, error)
	Admins(ctx context.Context, chat Entity) ([]Member, error)
	Members(ctx context.Context, chat Entity, limit int) ([]Member, error)
	// History returns authors of recent messages, newest first
	History(ctx context.Context, chat Entity, depth int) ([]Member, error)
	Send(ctx context.Context, peer Entity, payload *domain.Payload) error
	Click(ctx context.Context, msg Message, row, col int) error
	OnMessage(handler MessageHandler)
	Disconnect() error
}

// Prompter supplies interactive login input
type Prompter interface {
	Code(ctx context.Context) (string, error)
	Password(ctx context.Context) (string, error)
}

// Dialer creates account connections
type Dialer interface {
	// Login runs the interactive sign-in and returns the client and
	// its serialized credential
	Login(ctx context.Context, phone string, prompter Prompter) (Client, string, error)
	// Connect restores a client from a stored credential
	Connect(ctx context.Context, credential string) (Client, error)
}
