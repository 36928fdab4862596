package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"reydbot/internal/domain"
	"reydbot/internal/metrics"
	"reydbot/internal/repository/memory"
	"reydbot/internal/session"
	"reydbot/internal/testutil"

	"github.com/stretchr/testify/require"
)

const (
	operatorID  = int64(1000)
	waitTimeout = 2 * time.Second
)

// env wires every service against the memory store and fakes
type env struct {
	users    *memory.UserRepo
	registry *session.Registry
	notifier *testutil.FakeNotifier
	metrics  *metrics.Metrics
	client   *testutil.FakeClient
	dialer   *testutil.FakeDialer

	admission *AdmissionService
	watcher   *Watcher
	login     *LoginService
	jobs      *JobRunner
	conv      *ConversationService
	restorer  *Restorer
	stats     *StatsService
	entry     *EntryService

	sleepMu sync.Mutex
	sleeps  []time.Duration
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := testutil.NewTestLogger()

	e := &env{
		users:    memory.NewUserRepo(),
		registry: session.NewRegistry(),
		notifier: testutil.NewFakeNotifier(),
		metrics:  metrics.New(),
		client:   &testutil.FakeClient{},
	}
	e.dialer = &testutil.FakeDialer{Client: e.client}

	e.admission = NewAdmissionService(e.users, e.registry, e.notifier, operatorID, logger)
	e.watcher = NewWatcher(e.users, e.registry, e.notifier, e.metrics, []string{"💎", "Olish", "claim"}, logger)
	e.login = NewLoginService(e.users, e.registry, e.dialer, e.notifier, e.watcher, e.metrics, time.Second, logger)
	e.jobs = NewJobRunner(e.users, e.registry, e.notifier, e.metrics, JobConfig{
		PollInterval:   5 * time.Millisecond,
		FloodMargin:    3 * time.Second,
		ScrapeMaxLimit: 5000,
		HistoryDepth:   3000,
	}, logger)
	e.jobs.sleep = func(ctx context.Context, d time.Duration) error {
		e.sleepMu.Lock()
		e.sleeps = append(e.sleeps, d)
		e.sleepMu.Unlock()
		return ctx.Err()
	}
	e.conv = NewConversationService(e.registry, e.admission, e.login, e.jobs, e.notifier, logger)
	e.restorer = NewRestorer(e.users, e.registry, e.dialer, e.notifier, e.watcher, e.metrics, logger)
	e.stats = NewStatsService(e.users, e.registry, operatorID, logger)
	e.entry = NewEntryService(e.admission, e.restorer, e.login, e.registry, e.notifier, logger)

	t.Cleanup(e.registry.Shutdown)
	return e
}

// user stores a user with the given status
func (e *env) user(t *testing.T, chatID int64, status domain.UserStatus) {
	t.Helper()
	_, err := e.users.CreateUser(context.Background(), chatID, "Test", status)
	require.NoError(t, err)
}

// online stores an approved user with a credential and a live handle
func (e *env) online(t *testing.T, chatID int64) {
	t.Helper()
	e.user(t, chatID, domain.StatusApproved)
	require.NoError(t, e.users.SetCredential(context.Background(), chatID, "cred"))
	e.registry.SetClient(chatID, e.client)
}

func (e *env) stored(t *testing.T, chatID int64) *domain.User {
	t.Helper()
	u, err := e.users.GetUser(context.Background(), chatID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (e *env) step(chatID int64) domain.Step {
	state, ok := e.registry.State(chatID)
	if !ok {
		return ""
	}
	return state.Step
}

func (e *env) sleepCalls() []time.Duration {
	e.sleepMu.Lock()
	defer e.sleepMu.Unlock()
	return append([]time.Duration(nil), e.sleeps...)
}

// waitJob waits until job has finished and released its slot
func waitJob(t *testing.T, job *session.Job) {
	t.Helper()
	select {
	case <-job.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("job %s did not finish", job.ID)
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("media"), 0o600)
}
