package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reydbot/internal/domain"
	"reydbot/internal/testutil"
)

func TestRegistry_BeginFlowDiscardsPrevious(t *testing.T) {
	r := NewRegistry()

	media := filepath.Join(t.TempDir(), "sticker.webp")
	require.NoError(t, os.WriteFile(media, []byte("x"), 0o600))

	state := r.BeginFlow(1, domain.StepRaidPayload)
	state.Payload = &domain.Payload{MediaPath: media, MediaKind: domain.MediaSticker}
	r.SetState(1, state)

	login := NewLoginSession(1, "+1", time.Minute)
	r.SetLogin(1, login)

	r.BeginFlow(1, domain.StepBroadcastRecipients)

	got, ok := r.State(1)
	require.True(t, ok)
	assert.Equal(t, domain.StepBroadcastRecipients, got.Step)
	assert.Nil(t, got.Payload)
	assert.Error(t, login.Context().Err())
	_, ok = r.Login(1)
	assert.False(t, ok)

	_, err := os.Stat(media)
	assert.True(t, os.IsNotExist(err))
}

func TestRegistry_ClearStateKeepsMedia(t *testing.T) {
	r := NewRegistry()
	media := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(media, []byte("x"), 0o600))

	r.SetState(1, domain.ConversationState{Step: domain.StepRaidPayload, Payload: &domain.Payload{MediaPath: media}})
	r.ClearState(1)

	_, ok := r.State(1)
	assert.False(t, ok)
	_, err := os.Stat(media)
	assert.NoError(t, err)
}

func TestRegistry_SetStep(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.SetStep(1, domain.StepAwaitingCode))

	r.BeginFlow(1, domain.StepAwaitingPhone)
	assert.True(t, r.SetStep(1, domain.StepAwaitingCode))
	got, _ := r.State(1)
	assert.Equal(t, domain.StepAwaitingCode, got.Step)
}

func TestRegistry_ClaimJobOnePerKind(t *testing.T) {
	r := NewRegistry()

	first := NewJob(1, domain.JobRaid, 1)
	require.NoError(t, r.ClaimJob(first))
	assert.ErrorIs(t, r.ClaimJob(NewJob(1, domain.JobRaid, 1)), ErrJobRunning)

	// other kinds and other chats are independent
	assert.NoError(t, r.ClaimJob(NewJob(1, domain.JobBroadcast, 1)))
	assert.NoError(t, r.ClaimJob(NewJob(2, domain.JobRaid, 1)))

	active, ok := r.ActiveJob(1, domain.JobRaid)
	require.True(t, ok)
	assert.Equal(t, first.ID, active.ID)

	require.NoError(t, first.Stop())
	assert.NoError(t, r.ClaimJob(NewJob(1, domain.JobRaid, 1)))

	_, ok = r.Job(first.ID)
	assert.True(t, ok)
	r.ReleaseJob(first)
	_, ok = r.Job(first.ID)
	assert.False(t, ok)
}

func TestRegistry_ReleaseKeepsNewerJob(t *testing.T) {
	r := NewRegistry()
	old := NewJob(1, domain.JobRaid, 1)
	require.NoError(t, r.ClaimJob(old))
	require.NoError(t, old.Complete())

	newer := NewJob(1, domain.JobRaid, 1)
	require.NoError(t, r.ClaimJob(newer))
	r.ReleaseJob(old)

	active, ok := r.ActiveJob(1, domain.JobRaid)
	require.True(t, ok)
	assert.Equal(t, newer.ID, active.ID)
}

func TestRegistry_Clients(t *testing.T) {
	r := NewRegistry()
	first := &testutil.FakeClient{}
	second := &testutil.FakeClient{}

	assert.Nil(t, r.SetClient(1, first))
	assert.Equal(t, first, r.SetClient(1, second))
	assert.Equal(t, 1, r.ClientCount())

	c, ok := r.Client(1)
	require.True(t, ok)
	assert.Equal(t, second, c)
}

func TestRegistry_DropClientKeepsReplacement(t *testing.T) {
	r := NewRegistry()
	first := &testutil.FakeClient{}
	second := &testutil.FakeClient{}
	r.SetClient(1, first)
	r.SetClient(1, second)

	assert.False(t, r.DropClient(1, first), "stale handle")
	assert.Equal(t, 1, r.ClientCount())

	assert.True(t, r.DropClient(1, second))
	assert.False(t, r.DropClient(1, second), "already gone")
	_, ok := r.Client(1)
	assert.False(t, ok)
}

func TestRegistry_ToggleWatch(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.WatchEnabled(1))
	assert.False(t, r.ToggleWatch(1))
	assert.False(t, r.WatchEnabled(1))
	assert.True(t, r.ToggleWatch(1))
	assert.True(t, r.WatchEnabled(1))
}

func TestRegistry_Purge(t *testing.T) {
	r := NewRegistry()
	client := &testutil.FakeClient{}
	r.SetClient(1, client)
	job := NewJob(1, domain.JobBroadcast, 5)
	require.NoError(t, r.ClaimJob(job))
	r.BeginFlow(1, domain.StepRaidTarget)

	r.Purge(1)

	assert.True(t, client.Disconnected())
	assert.Equal(t, domain.JobStopped, job.Status())
	_, ok := r.State(1)
	assert.False(t, ok)
	_, ok = r.Client(1)
	assert.False(t, ok)
}

func TestRegistry_Shutdown(t *testing.T) {
	r := NewRegistry()
	client := &testutil.FakeClient{}
	r.SetClient(1, client)
	job := NewJob(1, domain.JobRaid, 5)
	require.NoError(t, r.ClaimJob(job))
	login := NewLoginSession(2, "+1", time.Minute)
	r.SetLogin(2, login)

	r.Shutdown()

	assert.True(t, client.Disconnected())
	assert.Equal(t, domain.JobStopped, job.Status())
	assert.Error(t, login.Context().Err())
	assert.Zero(t, r.ClientCount())
}

func TestRegistry_SetLoginStep(t *testing.T) {
	r := NewRegistry()
	login := NewLoginSession(1, "+1", time.Minute)

	r.BeginFlow(1, domain.StepLoginPending)
	assert.False(t, r.SetLoginStep(1, login, domain.StepAwaitingCode))

	r.SetLogin(1, login)
	assert.True(t, r.SetLoginStep(1, login, domain.StepAwaitingCode))

	// a newer flow is left alone
	r.SetState(1, domain.ConversationState{Step: domain.StepRaidTarget})
	assert.False(t, r.SetLoginStep(1, login, domain.StepAwaitingPassword))
	got, _ := r.State(1)
	assert.Equal(t, domain.StepRaidTarget, got.Step)
}
