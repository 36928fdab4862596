package service

import (
	"context"
	"strings"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/session"
)

// MaxRecipients caps the handles of one broadcast
const MaxRecipients = 100

// StartBroadcast sends payload once to every handle in order
func (r *JobRunner) StartBroadcast(ctx context.Context, chatID int64, handles []string, payload *domain.Payload) (*session.Job, error) {
	if len(handles) == 0 || len(handles) > MaxRecipients {
		return nil, ErrBadInput
	}
	recipients := append([]string(nil), handles...)

	return r.start(ctx, chatID, domain.JobBroadcast, len(recipients), payload, func(x *run) bool {
		return x.loop(len(recipients), func(ctx context.Context, i int) error {
			target := account.Target{Username: strings.TrimPrefix(recipients[i], "@")}
			peer, err := x.client.Resolve(ctx, target)
			if err != nil {
				return err
			}
			return x.client.Send(ctx, peer, payload)
		})
	})
}
