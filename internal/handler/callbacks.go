package handler

import (
	"context"
	"strings"
	"unicode"

	"reydbot/internal/domain"
	"reydbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// callbackFunc handles a callback; data is the cleaned button payload
type callbackFunc func(c tele.Context, data string) error

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

// splitCallbackData separates "unique|payload" data of buttons that did not
// come through with a unique
func splitCallbackData(data string) (unique, payload string) {
	unique, payload, _ = strings.Cut(data, "|")
	return unique, payload
}

func (h *Handler) callback(fn callbackFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(c, cleanCallbackData(c.Callback().Data))
	}
}

// handleEditError handles errors from c.Edit() - if message is not modified, just acknowledge callback
func (h *Handler) handleEditError(err error, c tele.Context) {
	if err == nil {
		return
	}
	if isNotModified(err) {
		h.logger.Debug("Message already modified by another callback",
			zap.Int64("user_id", c.Sender().ID),
			zap.String("callback_id", c.Callback().ID),
		)
		return
	}
	h.logger.Warn("Failed to edit message",
		zap.Error(err),
		zap.Int64("user_id", c.Sender().ID),
		zap.String("callback_id", c.Callback().ID),
	)
}

// handleCallback handles callbacks without a registered unique
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	data := cleanCallbackData(callback.Data)
	unique := callback.Unique
	if unique == "" {
		unique, data = splitCallbackData(data)
	}

	if fn, ok := h.callbacks[unique]; ok {
		return fn(c, data)
	}

	h.logger.Warn("Unhandled callback",
		zap.String("data", data),
		zap.String("unique", callback.Unique),
		zap.Int64("user_id", c.Sender().ID),
	)
	return c.Respond()
}

func (h *Handler) onApprove(c tele.Context, data string) error {
	return h.onAdmission(c, data, h.admission.Approve, service.ApprovedText)
}

func (h *Handler) onBlock(c tele.Context, data string) error {
	return h.onAdmission(c, data, h.admission.Block, service.BlockedText)
}

// onAdmission applies an operator decision and stamps it on the notice
func (h *Handler) onAdmission(
	c tele.Context,
	data string,
	action func(ctx context.Context, actorID, targetID int64) error,
	done func(chatID int64) string,
) error {
	targetID, ok := parseChatID(data)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: service.BadUserIDText})
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := action(ctx, c.Sender().ID, targetID); err != nil {
		if service.ErrorText(err) == service.ErrorText(nil) {
			h.logger.Error("Admission callback failed", zap.Int64("target_id", targetID), zap.Error(err))
		}
		return c.Respond(&tele.CallbackResponse{Text: service.ErrorText(err), ShowAlert: true})
	}

	text := done(targetID)
	if msg := c.Message(); msg != nil {
		h.handleEditError(c.Edit(msg.Text+"\n\n"+text), c)
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

func (h *Handler) onConfirm(c tele.Context, _ string) error {
	ctx, cancel := requestContext()
	defer cancel()

	h.handleEditError(c.Edit(&tele.ReplyMarkup{}), c)
	h.conv.Confirm(ctx, c.Sender().ID)
	return c.Respond()
}

func (h *Handler) onCancel(c tele.Context, _ string) error {
	ctx, cancel := requestContext()
	defer cancel()

	h.handleEditError(c.Edit(&tele.ReplyMarkup{}), c)
	h.conv.Cancel(ctx, c.Sender().ID)
	return c.Respond()
}

// onJobControl applies action to a job and refreshes its buttons
func (h *Handler) onJobControl(action string) callbackFunc {
	return func(c tele.Context, jobID string) error {
		return h.controlJob(c, jobID, action)
	}
}

func (h *Handler) controlJob(c tele.Context, jobID, action string) error {
	ctx, cancel := requestContext()
	defer cancel()

	text, err := h.jobs.Control(ctx, c.Sender().ID, jobID, action)
	if err != nil {
		h.logger.Error("Job control failed", zap.String("job_id", jobID), zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: service.ErrorText(err)})
	}

	markup := &tele.ReplyMarkup{}
	if buttons, ok := h.jobs.JobMarkup(jobID); ok {
		markup = inlineMarkup(buttons)
	}
	h.handleEditError(c.Edit(markup), c)
	return c.Respond(&tele.CallbackResponse{Text: text})
}

func (h *Handler) onWatchToggle(c tele.Context, _ string) error {
	ctx, cancel := requestContext()
	defer cancel()

	userID := c.Sender().ID
	if _, err := h.admission.Authorize(ctx, userID, false); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: service.ErrorText(err), ShowAlert: true})
	}
	h.watcher.Toggle(userID)
	return h.refresh(c, func() (domain.Message, error) { return h.watcher.Screen(ctx, userID) }, "")
}

func (h *Handler) onResetStats(c tele.Context, _ string) error {
	ctx, cancel := requestContext()
	defer cancel()

	userID := c.Sender().ID
	if err := h.stats.ResetCounters(ctx, userID); err != nil {
		h.logger.Error("Failed to reset counters", zap.Int64("user_id", userID), zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: service.ErrorText(err)})
	}
	return h.refresh(c, func() (domain.Message, error) { return h.stats.Profile(ctx, userID) }, service.ResetText)
}

// refresh re-renders the screen the callback came from
func (h *Handler) refresh(c tele.Context, render func() (domain.Message, error), answer string) error {
	msg, err := render()
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: service.ErrorText(err)})
	}
	h.handleEditError(c.Edit(msg.Text, sendOptions(msg)), c)
	return c.Respond(&tele.CallbackResponse{Text: answer})
}
