package gotd

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"

	"reydbot/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected domain.ErrorKind
	}{
		{name: "peer flood", err: tgerr.New(400, "PEER_FLOOD"), expected: domain.ErrAbuse},
		{name: "invalid code", err: tgerr.New(400, "PHONE_CODE_INVALID"), expected: domain.ErrInvalidCode},
		{name: "expired code", err: tgerr.New(400, "PHONE_CODE_EXPIRED"), expected: domain.ErrCodeExpired},
		{name: "invalid phone", err: tgerr.New(400, "PHONE_NUMBER_INVALID"), expected: domain.ErrInvalidPhone},
		{name: "invalid password", err: auth.ErrPasswordInvalid, expected: domain.ErrInvalidPassword},
		{name: "revoked session", err: tgerr.New(401, "AUTH_KEY_UNREGISTERED"), expected: domain.ErrSessionInvalid},
		{name: "unknown username", err: tgerr.New(400, "USERNAME_NOT_OCCUPIED"), expected: domain.ErrNotFound},
		{name: "write forbidden", err: tgerr.New(403, "CHAT_WRITE_FORBIDDEN"), expected: domain.ErrForbidden},
		{name: "hidden members", err: tgerr.New(400, "CHAT_ADMIN_REQUIRED"), expected: domain.ErrMembersHidden},
		{name: "already joined", err: tgerr.New(400, "USER_ALREADY_PARTICIPANT"), expected: domain.ErrAlreadyJoined},
		{name: "wrapped rpc error", err: fmt.Errorf("send: %w", tgerr.New(400, "PEER_FLOOD")), expected: domain.ErrAbuse},
		{name: "unmapped rpc error", err: tgerr.New(400, "SOMETHING_NEW"), expected: domain.ErrUnknown},
		{name: "plain error", err: fmt.Errorf("boom"), expected: domain.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.expected, domain.KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassify_FloodWait(t *testing.T) {
	err := classify(tgerr.New(420, "FLOOD_WAIT_30"))

	wait, ok := domain.FloodWait(err)
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	err = classify(tgerr.New(420, "SLOWMODE_WAIT_5"))
	wait, ok = domain.FloodWait(err)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)
}

func TestClassify_PassThrough(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.Equal(t, context.DeadlineExceeded, classify(context.DeadlineExceeded))

	typed := domain.NewAccountError(domain.ErrForbidden, nil)
	assert.Same(t, typed, classify(typed))
}
