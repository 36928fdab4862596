package handler

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleStart handles /start command
func (h *Handler) handleStart(c tele.Context) error {
	sender := c.Sender()

	h.logger.Info("User started bot",
		zap.Int64("user_id", sender.ID),
		zap.String("username", sender.Username),
	)

	ctx, cancel := requestContext()
	defer cancel()
	h.entry.Start(ctx, sender.ID, displayName(sender))
	return nil
}

func (h *Handler) handleMenu(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	h.entry.Menu(ctx, c.Sender().ID)
	return nil
}

func (h *Handler) handleHelp(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	h.entry.Help(ctx, c.Sender().ID)
	return nil
}

// handleCancel abandons the current flow
func (h *Handler) handleCancel(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	h.conv.Cancel(ctx, c.Sender().ID)
	return nil
}

func (h *Handler) handleBroadcast(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	h.conv.BeginBroadcast(ctx, c.Sender().ID)
	return nil
}

func (h *Handler) handleRaid(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	h.conv.BeginRaid(ctx, c.Sender().ID)
	return nil
}

func (h *Handler) handleScrape(c tele.Context) error {
	return h.beginScrape(c, false)
}

func (h *Handler) beginScrape(c tele.Context, adminsOnly bool) error {
	ctx, cancel := requestContext()
	defer cancel()
	h.conv.BeginScrape(ctx, c.Sender().ID, adminsOnly)
	return nil
}

// handleProfile shows the user's counters
func (h *Handler) handleProfile(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	userID := c.Sender().ID
	if _, err := h.admission.Authorize(ctx, userID, false); err != nil {
		return h.replyError(c, err)
	}
	msg, err := h.stats.Profile(ctx, userID)
	if err != nil {
		return h.replyError(c, err)
	}
	return c.Send(msg.Text, sendOptions(msg))
}

// handleAlmaz shows the auto-click screen
func (h *Handler) handleAlmaz(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	userID := c.Sender().ID
	if _, err := h.admission.Authorize(ctx, userID, true); err != nil {
		return h.replyError(c, err)
	}
	msg, err := h.watcher.Screen(ctx, userID)
	if err != nil {
		return h.replyError(c, err)
	}
	return c.Send(msg.Text, sendOptions(msg))
}

func (h *Handler) handleLogout(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	if err := h.admission.Logout(ctx, c.Sender().ID); err != nil {
		return h.replyError(c, err)
	}
	return nil
}
