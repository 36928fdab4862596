package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reydbot/internal/account"
	"reydbot/internal/domain"
	"reydbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New user is admitted, approved and logs in with a code
func TestScenario_AdmissionAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.admission.Admit(ctx, 123, "Ali")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, user.Status)
	assert.True(t, e.notifier.Contains(operatorID, "`123`"))

	require.NoError(t, e.admission.Approve(ctx, operatorID, 123))
	assert.True(t, e.notifier.Contains(123, "tasdiqlandingiz"))

	e.login.Begin(ctx, 123)
	e.conv.HandleText(ctx, 123, "+15551234567", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool { return e.step(123) == domain.StepAwaitingCode }))
	e.conv.HandleText(ctx, 123, "123456", nil)

	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Muvaffaqiyatli kirdingiz")
	}))
	assert.True(t, e.stored(t, 123).HasCredential())
	_, live := e.registry.Client(123)
	assert.True(t, live)
}

// Logged-in user broadcasts a text to three handles
func TestScenario_Broadcast(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()

	e.conv.BeginBroadcast(ctx, 123)
	assert.Equal(t, domain.StepBroadcastRecipients, e.step(123))

	assert.True(t, e.conv.HandleText(ctx, 123, "@user1 @user2\n@user3 @user1", nil))
	assert.True(t, e.notifier.Contains(123, "3 ta"))
	assert.Equal(t, domain.StepBroadcastPayload, e.step(123))

	spans := []domain.TextSpan{{Kind: domain.SpanBold, Offset: 0, Length: 5}}
	assert.True(t, e.conv.HandleText(ctx, 123, "Salom dunyo", spans))
	assert.Equal(t, domain.StepBroadcastConfirm, e.step(123))
	confirm := e.notifier.Last(123)
	assert.Contains(t, confirm.Text, "Salom dunyo")
	assert.Contains(t, confirm.Text, "Qabul qiluvchilar: 3")
	require.Len(t, confirm.Inline, 1)
	assert.Equal(t, CallbackConfirm, confirm.Inline[0][0].Unique)

	assert.True(t, e.conv.HandleText(ctx, 123, "Ha", nil))
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)

	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Yuborildi: 3")
	}))
	assert.True(t, e.notifier.Contains(123, "O'xshamadi: 0"))
	sent := e.client.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, spans, sent[0].Payload.Spans)
}

// Flood wait on the second of five recipients is waited out and retried
func TestScenario_BroadcastFloodWait(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()
	calls := newSendCounter()
	e.client.SendFunc = func(_ context.Context, peer account.Entity, _ *domain.Payload) error {
		if calls.hit(peer.Username) == 1 && peer.Username == "bravo" {
			return domain.FloodWaitError(10*time.Second, nil)
		}
		return nil
	}

	e.conv.BeginBroadcast(ctx, 123)
	e.conv.HandleText(ctx, 123, strings.Join(fiveHandles, " "), nil)
	e.conv.HandleText(ctx, 123, "reklama", nil)
	e.conv.Confirm(ctx, 123)

	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Yuborildi: 5")
	}))
	assert.True(t, e.notifier.Contains(123, "O'xshamadi: 0"))
	assert.True(t, e.notifier.Contains(123, "pauza qilindi"))
	assert.Equal(t, []time.Duration{13 * time.Second}, e.sleepCalls())
	assert.Equal(t, 5, e.stored(t, 123).AdsCount)
}

// Blocking a logged-in user tears down the handle and rejects new jobs
func TestScenario_Block(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()

	require.NoError(t, e.admission.Block(ctx, operatorID, 123))

	assert.True(t, e.client.Disconnected())
	assert.Empty(t, e.stored(t, 123).Credential)

	e.conv.BeginBroadcast(ctx, 123)
	assert.True(t, e.notifier.Contains(123, msgNotApproved))
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)

	_, err := e.jobs.StartRaid(ctx, 123, account.Target{Username: "someone"}, 1, &domain.Payload{Text: "x"})
	assert.ErrorIs(t, err, ErrNotApproved)

	user, err := e.admission.Admit(ctx, 123, "Test")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, user.Status)
}

func TestConversation_RecipientValidation(t *testing.T) {
	tooMany := make([]string, MaxRecipients+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("@user%d", i)
	}

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "no handles", text: "salom hammaga", expected: "Hech qanday username topilmadi"},
		{name: "too many", text: strings.Join(tooMany, " "), expected: "Maksimum 100 ta username mumkin. Siz 101 ta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.online(t, 123)
			e.conv.BeginBroadcast(context.Background(), 123)

			e.conv.HandleText(context.Background(), 123, tt.text, nil)

			assert.Contains(t, e.notifier.Last(123).Text, tt.expected)
			assert.Equal(t, domain.StepBroadcastRecipients, e.step(123), "does not advance")
		})
	}
}

func TestConversation_RaidFlow(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()

	e.conv.BeginRaid(ctx, 123)

	e.conv.HandleText(ctx, 123, "not a link!", nil)
	assert.Equal(t, domain.StepRaidTarget, e.step(123))
	assert.True(t, e.notifier.Contains(123, "Havola noto'g'ri"))

	e.conv.HandleText(ctx, 123, "https://t.me/+AbCdEf123", nil)
	assert.Equal(t, domain.StepRaidCount, e.step(123))

	for _, bad := range []string{"0", "501", "ko'p"} {
		e.conv.HandleText(ctx, 123, bad, nil)
		assert.Equal(t, domain.StepRaidCount, e.step(123), bad)
	}
	assert.Equal(t, 3, e.notifier.Count(123, "1 dan 500 gacha"))

	e.conv.HandleText(ctx, 123, "3", nil)
	assert.Equal(t, domain.StepRaidPayload, e.step(123))

	e.conv.HandleText(ctx, 123, "   ", nil)
	assert.Equal(t, domain.StepRaidPayload, e.step(123))
	assert.True(t, e.notifier.Contains(123, "Matn bo'sh"))

	e.conv.HandleText(ctx, 123, "hujum", nil)
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)

	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "Yuborildi: 3")
	}))
	assert.Equal(t, 3, e.stored(t, 123).ReydCount)
}

func TestConversation_ScrapeFlow(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()
	e.client.ResolveFunc = group
	e.client.AdminsFunc = func(context.Context, account.Entity) ([]account.Member, error) {
		return []account.Member{{Username: "boss"}}, nil
	}
	e.client.MembersFunc = func(context.Context, account.Entity, int) ([]account.Member, error) {
		t.Error("members fetched in admins-only mode")
		return nil, nil
	}

	e.conv.BeginScrape(ctx, 123, true)
	assert.True(t, e.notifier.Contains(123, "Avto Admin Id"))
	e.conv.HandleText(ctx, 123, "@guruh_nomi", nil)
	assert.Equal(t, domain.StepScrapeLimit, e.step(123))

	e.conv.HandleText(ctx, 123, "5001", nil)
	assert.Equal(t, domain.StepScrapeLimit, e.step(123))

	e.conv.HandleText(ctx, 123, "50", nil)
	require.True(t, testutil.Eventually(waitTimeout, func() bool {
		return e.notifier.Contains(123, "1 ta admin")
	}))
}

func TestConversation_ConfirmAnswers(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()
	e.conv.BeginBroadcast(ctx, 123)
	e.conv.HandleText(ctx, 123, "@user1", nil)
	e.conv.HandleText(ctx, 123, "reklama", nil)

	e.conv.HandleText(ctx, 123, "balki", nil)
	assert.Equal(t, domain.StepBroadcastConfirm, e.step(123))
	assert.True(t, e.notifier.Contains(123, `"Ha" yoki "Yo'q"`))

	e.conv.HandleText(ctx, 123, "Yo'q", nil)
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)
	assert.True(t, e.notifier.Contains(123, "Bekor qilindi"))
	assert.Empty(t, e.registry.Jobs(123))
}

func TestConversation_LastCommandWins(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()
	e.conv.BeginBroadcast(ctx, 123)
	e.conv.HandleText(ctx, 123, "@user1", nil)

	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, writeFile(path))
	require.True(t, e.conv.HandleMedia(ctx, 123, &domain.Payload{MediaPath: path, MediaKind: domain.MediaPhoto}))
	assert.Equal(t, domain.StepBroadcastConfirm, e.step(123))

	e.conv.BeginRaid(ctx, 123)

	assert.Equal(t, domain.StepRaidTarget, e.step(123))
	state, _ := e.registry.State(123)
	assert.Empty(t, state.Recipients)
	assert.NoFileExists(t, path, "discarded media is removed")
}

func TestConversation_MediaOutsidePayloadStep(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	path := filepath.Join(t.TempDir(), "sticker.webp")
	require.NoError(t, os.WriteFile(path, []byte("webp"), 0o600))

	handled := e.conv.HandleMedia(context.Background(), 123, &domain.Payload{MediaPath: path, MediaKind: domain.MediaSticker})

	assert.False(t, handled)
	assert.NoFileExists(t, path)
	assert.False(t, e.conv.WantsMedia(123))
}

func TestConversation_NoFlowIsIgnored(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)

	assert.False(t, e.conv.HandleText(context.Background(), 123, "salom", nil))
	assert.Empty(t, e.notifier.Messages(123))
}

func TestConversation_Cancel(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	ctx := context.Background()

	e.conv.Cancel(ctx, 123)
	assert.True(t, e.notifier.Contains(123, "Bekor qilinadigan jarayon yo'q"))

	e.conv.BeginRaid(ctx, 123)
	e.conv.Cancel(ctx, 123)
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)
	assert.Equal(t, MainMenu, e.notifier.Last(123).Keyboard)
}

func TestConversation_BeginRequiresLogin(t *testing.T) {
	e := newEnv(t)
	e.user(t, 123, domain.StatusApproved)

	e.conv.BeginRaid(context.Background(), 123)

	assert.True(t, e.notifier.Contains(123, "ulanmagansiz"))
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)
}

func TestConversation_BeginWhileJobRunning(t *testing.T) {
	e := newEnv(t)
	e.online(t, 123)
	release := make(chan struct{})
	e.client.SendFunc = func(ctx context.Context, _ account.Entity, _ *domain.Payload) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}
	job, err := e.jobs.StartRaid(context.Background(), 123, account.Target{Username: "someone"}, 1, &domain.Payload{Text: "x"})
	require.NoError(t, err)

	e.conv.BeginRaid(context.Background(), 123)

	assert.True(t, e.notifier.Contains(123, "allaqachon ishlamoqda"))
	_, hasState := e.registry.State(123)
	assert.False(t, hasState)

	close(release)
	waitJob(t, job)
}
