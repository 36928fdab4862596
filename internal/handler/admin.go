package handler

import (
	"context"
	"strconv"
	"strings"

	"reydbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleApprove handles /approve <chat_id>
func (h *Handler) handleApprove(c tele.Context) error {
	return h.adminCommand(c, h.admission.Approve, service.ApprovedText)
}

// handleBlock handles /block <chat_id>
func (h *Handler) handleBlock(c tele.Context) error {
	return h.adminCommand(c, h.admission.Block, service.BlockedText)
}

func (h *Handler) adminCommand(
	c tele.Context,
	action func(ctx context.Context, actorID, targetID int64) error,
	done func(chatID int64) string,
) error {
	actorID := c.Sender().ID
	if !h.admission.IsOperator(actorID) {
		return c.Send(service.ErrorText(service.ErrNotOperator))
	}

	targetID, ok := parseChatID(c.Message().Payload)
	if !ok {
		return c.Send(service.BadUserIDText)
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := action(ctx, actorID, targetID); err != nil {
		return h.replyError(c, err)
	}
	return c.Send(done(targetID))
}

// handleStats sends the operator report
func (h *Handler) handleStats(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	msg, err := h.stats.Report(ctx, c.Sender().ID)
	if err != nil {
		return h.replyError(c, err)
	}
	return c.Send(msg.Text, sendOptions(msg))
}

// parseChatID reads the first argument as a positive chat id
func parseChatID(args string) (int64, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// replyError logs unexpected errors and sends the user-facing text
func (h *Handler) replyError(c tele.Context, err error) error {
	text := service.ErrorText(err)
	if text == service.ErrorText(nil) {
		h.logger.Error("Request failed",
			zap.Int64("user_id", c.Sender().ID),
			zap.Error(err),
		)
	}
	return c.Send(text)
}
