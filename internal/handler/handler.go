package handler

import (
	"context"
	"os"
	"time"

	"reydbot/internal/middleware"
	"reydbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const requestTimeout = 30 * time.Second

// Handler manages all bot interactions
type Handler struct {
	bot       *tele.Bot
	entry     *service.EntryService
	admission *service.AdmissionService
	conv      *service.ConversationService
	jobs      *service.JobRunner
	watcher   *service.Watcher
	stats     *service.StatsService
	logger    *zap.Logger

	// mediaDir receives downloaded stickers and photos
	mediaDir  string
	callbacks map[string]callbackFunc
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	entry *service.EntryService,
	admission *service.AdmissionService,
	conv *service.ConversationService,
	jobs *service.JobRunner,
	watcher *service.Watcher,
	stats *service.StatsService,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		bot:       bot,
		entry:     entry,
		admission: admission,
		conv:      conv,
		jobs:      jobs,
		watcher:   watcher,
		stats:     stats,
		logger:    logger,
		mediaDir:  os.TempDir(),
	}
	h.callbacks = map[string]callbackFunc{
		service.CallbackApprove:     h.onApprove,
		service.CallbackBlock:       h.onBlock,
		service.CallbackConfirm:     h.onConfirm,
		service.CallbackCancel:      h.onCancel,
		service.CallbackJobPause:    h.onJobControl(service.CallbackJobPause),
		service.CallbackJobResume:   h.onJobControl(service.CallbackJobResume),
		service.CallbackJobStop:     h.onJobControl(service.CallbackJobStop),
		service.CallbackWatchToggle: h.onWatchToggle,
		service.CallbackResetStats:  h.onResetStats,
	}
	return h
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/help", h.handleHelp)
	h.bot.Handle("/cancel", h.handleCancel)
	h.bot.Handle("/approve", h.handleApprove)
	h.bot.Handle("/block", h.handleBlock)
	h.bot.Handle("/stats", h.handleStats)

	gated := h.bot.Group()
	gated.Use(middleware.RequireApproved(h.admission, h.logger))
	gated.Handle("/menu", h.handleMenu)
	gated.Handle("/profile", h.handleProfile)
	gated.Handle("/rek", h.handleBroadcast)
	gated.Handle("/reyd", h.handleRaid)
	gated.Handle("/scrape", h.handleScrape)

	// Text messages and reply keyboard labels
	h.bot.Handle(tele.OnText, h.handleText)

	// Payload media
	h.bot.Handle(tele.OnSticker, h.handleSticker)
	h.bot.Handle(tele.OnPhoto, h.handlePhoto)

	// Callback queries (inline buttons)
	for unique, fn := range h.callbacks {
		btn := tele.Btn{Unique: unique}
		h.bot.Handle(&btn, h.callback(fn))
	}

	// Generic callback handler for data without a registered unique
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// displayName is the name stored for a new user
func displayName(u *tele.User) string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}
