package testutil

import (
	"context"
	"strings"
	"sync"

	"reydbot/internal/domain"
)

// FakeNotifier records everything the bot would send
type FakeNotifier struct {
	mu      sync.Mutex
	nextID  int
	sent    map[int64][]domain.Message
	edits   map[domain.MessageRef]domain.Message
	answers []string
}

// NewFakeNotifier creates an empty recorder
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{
		sent:  make(map[int64][]domain.Message),
		edits: make(map[domain.MessageRef]domain.Message),
	}
}

func (n *FakeNotifier) Send(_ context.Context, chatID int64, msg domain.Message) (domain.MessageRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.sent[chatID] = append(n.sent[chatID], msg)
	return domain.MessageRef{ChatID: chatID, MessageID: n.nextID}, nil
}

func (n *FakeNotifier) Edit(_ context.Context, ref domain.MessageRef, msg domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edits[ref] = msg
	return nil
}

func (n *FakeNotifier) Answer(_ context.Context, _ string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.answers = append(n.answers, text)
	return nil
}

// Messages returns the messages sent to chatID
func (n *FakeNotifier) Messages(chatID int64) []domain.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Message(nil), n.sent[chatID]...)
}

// Last returns the latest message sent to chatID
func (n *FakeNotifier) Last(chatID int64) domain.Message {
	msgs := n.Messages(chatID)
	if len(msgs) == 0 {
		return domain.Message{}
	}
	return msgs[len(msgs)-1]
}

// Contains reports whether any message to chatID contains substr
func (n *FakeNotifier) Contains(chatID int64, substr string) bool {
	for _, m := range n.Messages(chatID) {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Count returns how many messages to chatID contain substr
func (n *FakeNotifier) Count(chatID int64, substr string) int {
	count := 0
	for _, m := range n.Messages(chatID) {
		if strings.Contains(m.Text, substr) {
			count++
		}
	}
	return count
}

// Answers returns callback answers in order
func (n *FakeNotifier) Answers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.answers...)
}

// Edited returns the last edit of ref
func (n *FakeNotifier) Edited(ref domain.MessageRef) (domain.Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg, ok := n.edits[ref]
	return msg, ok
}
