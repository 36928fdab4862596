package domain

// Button is an inline button. Unique selects the handler, Data is its payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Message is an outgoing bot message
type Message struct {
	Text           string
	Markdown       bool
	Inline         [][]Button
	Keyboard       [][]string
	RemoveKeyboard bool
}

// MessageRef points at a message sent by the bot
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Text creates a plain message
func Text(text string) Message {
	return Message{Text: text}
}

// Markdown creates a Markdown message
func Markdown(text string) Message {
	return Message{Text: text, Markdown: true}
}
