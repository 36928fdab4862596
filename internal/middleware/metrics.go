package middleware

import (
	"strings"
	"time"

	"reydbot/internal/metrics"

	tele "gopkg.in/telebot.v3"
)

// Instrument counts updates and times their handlers by route
func Instrument(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			route := Route(c)
			start := time.Now()
			err := next(c)
			m.HandlerDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			m.UpdatesProcessed.WithLabelValues(route).Inc()
			return err
		}
	}
}

// Route names an update for metrics: the callback unique, the command, or
// the message kind.
func Route(c tele.Context) string {
	if cb := c.Callback(); cb != nil {
		if cb.Unique == "" {
			return "callback"
		}
		return "callback:" + cb.Unique
	}

	msg := c.Message()
	switch {
	case msg == nil:
		return "other"
	case msg.Sticker != nil:
		return "sticker"
	case msg.Photo != nil:
		return "photo"
	case strings.HasPrefix(msg.Text, "/"):
		cmd, _, _ := strings.Cut(msg.Text, " ")
		cmd, _, _ = strings.Cut(cmd, "@")
		return cmd
	default:
		return "text"
	}
}
