package service

import (
	"context"

	"reydbot/internal/domain"

	"go.uber.org/zap"
)

// Notifier delivers bot messages to users
type Notifier interface {
	Send(ctx context.Context, chatID int64, msg domain.Message) (domain.MessageRef, error)
	Edit(ctx context.Context, ref domain.MessageRef, msg domain.Message) error
	Answer(ctx context.Context, callbackID, text string) error
}

// notify sends msg and logs delivery failures
func notify(ctx context.Context, n Notifier, logger *zap.Logger, chatID int64, msg domain.Message) domain.MessageRef {
	ref, err := n.Send(ctx, chatID, msg)
	if err != nil {
		logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return ref
}
