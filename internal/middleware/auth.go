package middleware

import (
	"context"
	"errors"

	"reydbot/internal/domain"
	"reydbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Authorizer checks whether a chat may use gated features
type Authorizer interface {
	Authorize(ctx context.Context, chatID int64, needClient bool) (*domain.User, error)
}

// RequireApproved lets only approved users through
func RequireApproved(auth Authorizer, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			_, err := auth.Authorize(context.Background(), sender.ID, false)
			if err != nil {
				if !errors.Is(err, service.ErrNotApproved) {
					logger.Error("Failed to check authorization in middleware",
						zap.Int64("user_id", sender.ID),
						zap.Error(err),
					)
				}
				if c.Callback() != nil {
					return c.Respond(&tele.CallbackResponse{Text: service.ErrorText(err), ShowAlert: true})
				}
				return c.Send(service.ErrorText(err))
			}

			return next(c)
		}
	}
}
