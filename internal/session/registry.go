// Package session keeps the per-user in-memory state of the bot:
// conversation steps, account connections, background jobs, login
// windows and watcher switches.
package session

import (
	"errors"
	"sync"

	"reydbot/internal/account"
	"reydbot/internal/domain"
)

// ErrJobRunning is returned when a job of the same kind is still active
var ErrJobRunning = errors.New("job of this kind is already running")

type jobKey struct {
	chatID int64
	kind   domain.JobKind
}

// Registry owns all in-memory session state
type Registry struct {
	mu       sync.Mutex
	states   map[int64]*domain.ConversationState
	clients  map[int64]account.Client
	jobs     map[jobKey]*Job
	jobsByID map[string]*Job
	logins   map[int64]*LoginSession
	watchOff map[int64]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		states:   make(map[int64]*domain.ConversationState),
		clients:  make(map[int64]account.Client),
		jobs:     make(map[jobKey]*Job),
		jobsByID: make(map[string]*Job),
		logins:   make(map[int64]*LoginSession),
		watchOff: make(map[int64]bool),
	}
}

// State returns a copy of the conversation state
func (r *Registry) State(chatID int64) (domain.ConversationState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[chatID]
	if !ok {
		return domain.ConversationState{}, false
	}
	return *state, true
}

// SetState stores the conversation state
func (r *Registry) SetState(chatID int64, state domain.ConversationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[chatID] = &state
}

// SetStep moves an existing state to step
func (r *Registry) SetStep(chatID int64, step domain.Step) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[chatID]
	if !ok {
		return false
	}
	state.Step = step
	return true
}

// SetLoginStep moves the chat to step if l is still its current login
func (r *Registry) SetLoginStep(chatID int64, l *LoginSession, step domain.Step) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.states[chatID]
	if !ok || r.logins[chatID] != l || !state.Step.IsLogin() {
		return false
	}
	state.Step = step
	return true
}

// BeginFlow discards any previous flow of the chat and starts a new one at step
func (r *Registry) BeginFlow(chatID int64, step domain.Step) domain.ConversationState {
	r.DiscardState(chatID)

	state := domain.NewState(step)
	r.mu.Lock()
	r.states[chatID] = state
	r.mu.Unlock()
	return *state
}

// ClearState removes the state without touching its payload
func (r *Registry) ClearState(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, chatID)
}

// DiscardState removes the state, deletes its media file and cancels the
// login window bound to it.
func (r *Registry) DiscardState(chatID int64) {
	r.mu.Lock()
	state := r.states[chatID]
	delete(r.states, chatID)
	login := r.logins[chatID]
	delete(r.logins, chatID)
	r.mu.Unlock()

	if state != nil {
		_ = state.Payload.Cleanup()
	}
	if login != nil {
		login.Cancel()
	}
}

// Client returns the account connection of the chat
func (r *Registry) Client(chatID int64) (account.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[chatID]
	return c, ok
}

// SetClient stores c and returns the connection it replaced, if any
func (r *Registry) SetClient(chatID int64, c account.Client) account.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.clients[chatID]
	r.clients[chatID] = c
	return old
}

// RemoveClient forgets the connection and returns it
func (r *Registry) RemoveClient(chatID int64) account.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.clients[chatID]
	delete(r.clients, chatID)
	return c
}

// DropClient forgets the connection only if it is still c. It reports
// whether c was removed.
func (r *Registry) DropClient(chatID int64, c account.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.clients[chatID]; !ok || current != c {
		return false
	}
	delete(r.clients, chatID)
	return true
}

// ClientCount returns the number of live connections
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// ClaimJob registers job unless one of the same kind is still running
func (r *Registry) ClaimJob(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := jobKey{chatID: job.ChatID, kind: job.Kind}
	if cur, ok := r.jobs[key]; ok && !cur.Status().Terminal() {
		return ErrJobRunning
	}
	r.jobs[key] = job
	r.jobsByID[job.ID] = job
	return nil
}

// ReleaseJob removes a finished job
func (r *Registry) ReleaseJob(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := jobKey{chatID: job.ChatID, kind: job.Kind}
	if r.jobs[key] == job {
		delete(r.jobs, key)
	}
	delete(r.jobsByID, job.ID)
}

// Job finds a job by id
func (r *Registry) Job(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobsByID[id]
	return j, ok
}

// ActiveJob returns the running job of kind for the chat
func (r *Registry) ActiveJob(chatID int64, kind domain.JobKind) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobKey{chatID: chatID, kind: kind}]
	if !ok || j.Status().Terminal() {
		return nil, false
	}
	return j, true
}

// Jobs returns all jobs of the chat
func (r *Registry) Jobs(chatID int64) []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	var jobs []*Job
	for key, j := range r.jobs {
		if key.chatID == chatID {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// SetLogin stores l, cancelling any previous login of the chat
func (r *Registry) SetLogin(chatID int64, l *LoginSession) {
	r.mu.Lock()
	old := r.logins[chatID]
	r.logins[chatID] = l
	r.mu.Unlock()

	if old != nil && old != l {
		old.Cancel()
	}
}

// Login returns the login window of the chat
func (r *Registry) Login(chatID int64) (*LoginSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logins[chatID]
	return l, ok
}

// RemoveLogin forgets l if it is still the current login of the chat
func (r *Registry) RemoveLogin(chatID int64, l *LoginSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logins[chatID] != l {
		return false
	}
	delete(r.logins, chatID)
	return true
}

// WatchEnabled reports whether auto-click is on. It is on by default.
func (r *Registry) WatchEnabled(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.watchOff[chatID]
}

// ToggleWatch flips auto-click and returns the new value
func (r *Registry) ToggleWatch(chatID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchOff[chatID] {
		delete(r.watchOff, chatID)
		return true
	}
	r.watchOff[chatID] = true
	return false
}

// Purge stops and forgets everything held for the chat
func (r *Registry) Purge(chatID int64) {
	for _, j := range r.Jobs(chatID) {
		_ = j.Stop()
	}
	r.DiscardState(chatID)
	if c := r.RemoveClient(chatID); c != nil {
		_ = c.Disconnect()
	}
}

// Shutdown stops all jobs and logins and closes every connection
func (r *Registry) Shutdown() {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	logins := make([]*LoginSession, 0, len(r.logins))
	for _, l := range r.logins {
		logins = append(logins, l)
	}
	clients := make([]account.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[int64]account.Client)
	r.mu.Unlock()

	for _, j := range jobs {
		_ = j.Stop()
	}
	for _, l := range logins {
		l.Cancel()
	}
	for _, c := range clients {
		_ = c.Disconnect()
	}
}
