package service

import (
	"context"
	"errors"
	"fmt"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/session"

	"go.uber.org/zap"
)

// MaxRaidCount caps the sends of one raid
const MaxRaidCount = 500

// ErrBadInput is returned for job arguments outside their bounds
var ErrBadInput = errors.New("invalid job input")

// StartRaid joins target when needed and sends payload count times
func (r *JobRunner) StartRaid(ctx context.Context, chatID int64, target account.Target, count int, payload *domain.Payload) (*session.Job, error) {
	if count < 1 || count > MaxRaidCount {
		return nil, ErrBadInput
	}

	return r.start(ctx, chatID, domain.JobRaid, count, payload, func(x *run) bool {
		peer, ok := x.enter(target)
		if !ok {
			return true
		}
		return x.loop(count, func(ctx context.Context, _ int) error {
			return x.client.Send(ctx, peer, payload)
		})
	})
}

// enter resolves target and joins it when it is a group or an invite.
// It reports false after telling the user why the target is unusable.
func (x *run) enter(target account.Target) (account.Entity, bool) {
	var peer account.Entity
	err := x.attempt(func(ctx context.Context) error {
		var err error
		if peer, err = x.client.Resolve(ctx, target); err != nil {
			return err
		}
		if !target.IsInvite() && !peer.IsGroup() {
			return nil
		}
		joined, err := x.client.Join(ctx, target, peer)
		switch {
		case domain.IsKind(err, domain.ErrAlreadyJoined):
			return nil
		case err != nil:
			return err
		}
		peer = joined
		return nil
	})
	if err == nil {
		return peer, true
	}
	if errors.Is(err, errJobStopped) {
		return peer, false
	}

	x.log.Warn("Failed to open target", zap.Stringer("target", target), zap.Error(err))
	msg := fmt.Sprintf("❌ %s ga kirib bo'lmadi.", target)
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		msg = fmt.Sprintf("❌ %s topilmadi.", target)
	case domain.ErrAbuse:
		msg = fmt.Sprintf("⚠️ DIQQAT! Telegram sizni vaqtincha spam qildi.\n%s to'xtatildi.", x.job.Kind.Title())
	case domain.ErrSessionInvalid:
		x.resetSession(err)
		return peer, false
	}
	x.send(context.Background(), x.job.ChatID, domain.Text(msg))
	return peer, false
}
