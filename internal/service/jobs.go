package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/metrics"
	"reydbot/internal/repository"
	"reydbot/internal/session"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// errJobStopped ends a job loop after Stop or shutdown
var errJobStopped = errors.New("job stopped")

// JobConfig tunes the background job loop
type JobConfig struct {
	Delay          time.Duration
	PollInterval   time.Duration
	FloodMargin    time.Duration
	ScrapeMaxLimit int
	HistoryDepth   int
}

// JobRunner starts and controls background jobs
type JobRunner struct {
	users    repository.UserRepository
	registry *session.Registry
	notifier Notifier
	metrics  *metrics.Metrics
	cfg      JobConfig
	logger   *zap.Logger

	sleep    func(ctx context.Context, d time.Duration) error
	sessions sessionReset
}

// NewJobRunner creates a new job runner
func NewJobRunner(
	users repository.UserRepository,
	registry *session.Registry,
	notifier Notifier,
	m *metrics.Metrics,
	cfg JobConfig,
	logger *zap.Logger,
) *JobRunner {
	return &JobRunner{
		users:    users,
		registry: registry,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
		sessions: sessionReset{users: users, registry: registry, notifier: notifier, metrics: m, logger: logger},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is one job execution with its pacing state
type run struct {
	*JobRunner
	job     *session.Job
	client  account.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// start claims a job slot and runs body in the background
func (r *JobRunner) start(ctx context.Context, chatID int64, kind domain.JobKind, total int, payload *domain.Payload, body func(x *run) bool) (*session.Job, error) {
	user, err := r.users.GetUser(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", kind, err)
	}
	if !user.IsApproved() {
		return nil, ErrNotApproved
	}
	client, ok := r.registry.Client(chatID)
	if !ok {
		return nil, ErrNotLoggedIn
	}

	job := session.NewJob(chatID, kind, total)
	if err := r.registry.ClaimJob(job); err != nil {
		return nil, err
	}
	r.metrics.JobsStarted.WithLabelValues(string(kind)).Inc()

	x := &run{
		JobRunner: r,
		job:       job,
		client:    client,
		limiter:   newLimiter(r.cfg.Delay),
		log:       r.logger.With(zap.Int64("chat_id", chatID), zap.String("job_id", job.ID), zap.String("kind", string(kind))),
	}
	x.log.Info("Job started", zap.Int("total", total))
	r.send(ctx, chatID, domain.Message{
		Text:   fmt.Sprintf("🚀 %s boshlandi...\nJami: %d", kind.Title(), total),
		Inline: jobControls(job.ID, false),
	})

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				x.log.Error("Job panicked", zap.Any("panic", rec))
				x.finish(payload, true)
			}
		}()
		aborted := body(x)
		x.finish(payload, aborted)
	}()
	return job, nil
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// attempt runs fn once the job is active and paced, retrying after flood
// waits. Flood retries are not counted as failures.
func (x *run) attempt(fn func(ctx context.Context) error) error {
	for {
		if !x.job.WaitWhilePaused(x.cfg.PollInterval) {
			return errJobStopped
		}
		ctx := x.job.Context()
		if err := x.limiter.Wait(ctx); err != nil {
			return errJobStopped
		}

		err := fn(ctx)
		if ctx.Err() != nil {
			return errJobStopped
		}
		wait, ok := domain.FloodWait(err)
		if !ok {
			return err
		}

		x.metrics.FloodWaits.WithLabelValues(string(x.job.Kind), "flood_wait").Inc()
		x.log.Warn("Flood wait", zap.Duration("wait", wait))
		wait += x.cfg.FloodMargin
		if x.job.Kind == domain.JobBroadcast {
			_ = x.job.Pause(true)
			x.send(ctx, x.job.ChatID, domain.Message{
				Text: fmt.Sprintf("⏳ Telegram cheklov qo'ydi. Reklama %d soniyaga pauza qilindi va keyin o'zi davom etadi.\n%s",
					int(wait.Seconds()), x.job.Tally()),
				Inline: jobControls(x.job.ID, true),
			})
		}
		if err := x.sleep(ctx, wait); err != nil {
			return errJobStopped
		}
		if x.job.Kind == domain.JobBroadcast && x.job.ErrorState() {
			// the user may have resumed or stopped meanwhile
			_ = x.job.Resume()
		}
	}
}

// loop processes items from the job cursor to total. It reports whether
// the job was aborted.
func (x *run) loop(total int, item func(ctx context.Context, i int) error) bool {
	for x.job.Cursor() < total {
		i := x.job.Cursor()
		err := x.attempt(func(ctx context.Context) error { return item(ctx, i) })
		switch {
		case errors.Is(err, errJobStopped):
			return false
		case domain.IsKind(err, domain.ErrAbuse):
			x.metrics.FloodWaits.WithLabelValues(string(x.job.Kind), "abuse").Inc()
			if x.job.Kind == domain.JobBroadcast {
				x.pauseOnAbuse()
				continue
			}
			x.notifyAbuse()
			return true
		case domain.IsKind(err, domain.ErrSessionInvalid):
			x.resetSession(err)
			return true
		}

		if err != nil {
			x.log.Debug("Job item failed", zap.Int("index", i), zap.Error(err))
			x.metrics.JobItems.WithLabelValues(string(x.job.Kind), "failed").Inc()
		} else {
			x.metrics.JobItems.WithLabelValues(string(x.job.Kind), "sent").Inc()
		}
		x.job.Record(err == nil)
	}
	return false
}

// resetSession drops the handle the job runs on after Telegram rejected it
func (x *run) resetSession(err error) {
	x.log.Warn("Session invalid during job", zap.Error(err))
	x.sessions.reset(context.Background(), x.job.ChatID, x.client)
}

func (x *run) pauseOnAbuse() {
	if err := x.job.Pause(true); err != nil {
		return
	}
	x.log.Warn("Broadcast paused on spam block")
	x.send(context.Background(), x.job.ChatID, domain.Message{
		Text: fmt.Sprintf("⚠️ DIQQAT! Telegram sizni vaqtincha spam qildi.\nReklama pauza qilindi.\n%s\n\nDavom ettirish uchun ▶️ tugmasini bosing.",
			x.job.Tally()),
		Inline: jobControls(x.job.ID, true),
	})
}

func (x *run) notifyAbuse() {
	x.log.Warn("Job aborted on spam block")
	x.send(context.Background(), x.job.ChatID, domain.Text(
		fmt.Sprintf("⚠️ DIQQAT! Telegram sizni vaqtincha spam qildi.\n%s to'xtatildi.", x.job.Kind.Title()),
	))
}

// finish applies counters, reports the tally and releases the slot
func (x *run) finish(payload *domain.Payload, aborted bool) {
	ctx := context.Background()
	stopped := x.job.Status() == domain.JobStopped
	switch {
	case stopped:
	case aborted:
		_ = x.job.Stop()
	default:
		_ = x.job.Complete()
	}
	tally := x.job.Tally()

	if tally.Sent > 0 {
		if _, err := x.users.IncrementCounter(ctx, x.job.ChatID, x.job.Kind.Counter(), tally.Sent); err != nil {
			x.log.Error("Failed to update counter", zap.Error(err))
		}
	}
	if err := payload.Cleanup(); err != nil {
		x.log.Warn("Failed to remove media", zap.Error(err))
	}

	title := "✅ %s yakunlandi!"
	switch {
	case stopped:
		title = "⏹ %s to'xtatildi."
	case aborted:
		title = "⚠️ %s to'xtab qoldi."
	}
	x.log.Info("Job finished", zap.Bool("stopped", stopped), zap.Bool("aborted", aborted), zap.Stringer("tally", tally))
	if x.job.Kind != domain.JobScrape {
		x.send(ctx, x.job.ChatID, domain.Text(fmt.Sprintf(title+"\n\nJami: %d\nYuborildi: %d\nO'xshamadi: %d",
			x.job.Kind.Title(), tally.Total, tally.Sent, tally.Failed)))
	}

	x.registry.ReleaseJob(x.job)
	x.job.Finish()
}

// Control applies a pause, resume or stop request from the job owner
func (r *JobRunner) Control(ctx context.Context, chatID int64, jobID, action string) (string, error) {
	job, ok := r.registry.Job(jobID)
	if !ok || job.ChatID != chatID {
		return msgJobNotFound, nil
	}

	var err error
	switch action {
	case CallbackJobPause:
		err = job.Pause(false)
	case CallbackJobResume:
		err = job.Resume()
	case CallbackJobStop:
		err = job.Stop()
	default:
		return "", fmt.Errorf("unknown job action %q", action)
	}
	if errors.Is(err, session.ErrJobFinished) {
		return msgJobNotFound, nil
	}
	if err != nil {
		return "", err
	}

	r.logger.Info("Job control", zap.Int64("chat_id", chatID), zap.String("job_id", jobID), zap.String("action", action))
	switch job.Status() {
	case domain.JobPaused:
		return "⏸ Pauza", nil
	case domain.JobStopped:
		return "⏹ To'xtatildi", nil
	}
	return "▶️ Davom etmoqda", nil
}

// JobMarkup returns the controls matching the job's status
func (r *JobRunner) JobMarkup(jobID string) ([][]domain.Button, bool) {
	job, ok := r.registry.Job(jobID)
	if !ok || job.Status().Terminal() {
		return nil, false
	}
	return jobControls(job.ID, job.Status() == domain.JobPaused), true
}

func (r *JobRunner) send(ctx context.Context, chatID int64, msg domain.Message) {
	notify(ctx, r.notifier, r.logger, chatID, msg)
}
