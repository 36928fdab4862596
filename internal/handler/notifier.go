package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"reydbot/internal/domain"
	"reydbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Notifier delivers domain messages through the Bot API
type Notifier struct {
	bot    *tele.Bot
	logger *zap.Logger
}

var _ service.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier on top of bot
func NewNotifier(bot *tele.Bot, logger *zap.Logger) *Notifier {
	return &Notifier{bot: bot, logger: logger}
}

// Send delivers msg. Markdown that the API rejects is resent as plain text.
func (n *Notifier) Send(_ context.Context, chatID int64, msg domain.Message) (domain.MessageRef, error) {
	sent, err := n.bot.Send(tele.ChatID(chatID), msg.Text, sendOptions(msg))
	if err != nil && msg.Markdown && isParseError(err) {
		n.logger.Warn("Markdown rejected, sending plain text", zap.Int64("chat_id", chatID), zap.Error(err))
		msg.Markdown = false
		sent, err = n.bot.Send(tele.ChatID(chatID), msg.Text, sendOptions(msg))
	}
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("send to %d: %w", chatID, err)
	}
	return domain.MessageRef{ChatID: chatID, MessageID: sent.ID}, nil
}

// Edit replaces the text and inline keyboard of a sent message
func (n *Notifier) Edit(_ context.Context, ref domain.MessageRef, msg domain.Message) error {
	stored := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	_, err := n.bot.Edit(stored, msg.Text, sendOptions(msg))
	if err != nil && msg.Markdown && isParseError(err) {
		msg.Markdown = false
		_, err = n.bot.Edit(stored, msg.Text, sendOptions(msg))
	}
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("edit %d/%d: %w", ref.ChatID, ref.MessageID, err)
	}
	return nil
}

// Answer acknowledges a callback query
func (n *Notifier) Answer(_ context.Context, callbackID, text string) error {
	err := n.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	if err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// sendOptions converts the formatting and keyboard of msg
func sendOptions(msg domain.Message) *tele.SendOptions {
	opts := &tele.SendOptions{ReplyMarkup: replyMarkup(msg)}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	return opts
}

func replyMarkup(msg domain.Message) *tele.ReplyMarkup {
	switch {
	case len(msg.Inline) > 0:
		return inlineMarkup(msg.Inline)
	case len(msg.Keyboard) > 0:
		markup := &tele.ReplyMarkup{ResizeKeyboard: true}
		rows := make([]tele.Row, 0, len(msg.Keyboard))
		for _, labels := range msg.Keyboard {
			row := make(tele.Row, 0, len(labels))
			for _, label := range labels {
				row = append(row, markup.Text(label))
			}
			rows = append(rows, row)
		}
		markup.Reply(rows...)
		return markup
	case msg.RemoveKeyboard:
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	default:
		return nil
	}
}

// inlineMarkup builds an inline keyboard; an empty one removes the buttons
func inlineMarkup(buttons [][]domain.Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, line := range buttons {
		row := make(tele.Row, 0, len(line))
		for _, b := range line {
			if b.Data == "" {
				row = append(row, markup.Data(b.Text, b.Unique))
			} else {
				row = append(row, markup.Data(b.Text, b.Unique, b.Data))
			}
		}
		rows = append(rows, row)
	}
	markup.Inline(rows...)
	return markup
}

func isParseError(err error) bool {
	return strings.Contains(err.Error(), "can't parse entities")
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
