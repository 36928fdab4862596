package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"reydbot/internal/domain"
)

// ErrJobFinished is returned when controlling a stopped or completed job
var ErrJobFinished = errors.New("job already finished")

const (
	eventPause    = "pause"
	eventResume   = "resume"
	eventStop     = "stop"
	eventComplete = "complete"
)

// Job is a running background job with pause/resume/stop control
type Job struct {
	ID        string
	ChatID    int64
	Kind      domain.JobKind
	CreatedAt time.Time

	status *fsm.FSM
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	cursor     int
	errorState bool
	tally      domain.Tally
}

// NewJob creates an active job over total items
func NewJob(chatID int64, kind domain.JobKind, total int) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Kind:      kind,
		CreatedAt: time.Now(),
		status: fsm.NewFSM(
			string(domain.JobActive),
			fsm.Events{
				{Name: eventPause, Src: []string{string(domain.JobActive)}, Dst: string(domain.JobPaused)},
				{Name: eventResume, Src: []string{string(domain.JobPaused)}, Dst: string(domain.JobActive)},
				{Name: eventStop, Src: []string{string(domain.JobActive), string(domain.JobPaused)}, Dst: string(domain.JobStopped)},
				{Name: eventComplete, Src: []string{string(domain.JobActive)}, Dst: string(domain.JobCompleted)},
			},
			fsm.Callbacks{},
		),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		tally:  domain.Tally{Total: total},
	}
}

// Status returns the current lifecycle status
func (j *Job) Status() domain.JobStatus {
	return domain.JobStatus(j.status.Current())
}

// Context is cancelled when the job is stopped
func (j *Job) Context() context.Context {
	return j.ctx
}

// Done is closed once the job loop has exited
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Finish marks the job loop as exited
func (j *Job) Finish() {
	j.once.Do(func() {
		close(j.done)
		j.cancel()
	})
}

// Pause moves an active job to paused. Pausing a paused job keeps it
// paused; a user pause (errorState false) also cancels any automatic resume.
func (j *Job) Pause(errorState bool) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.Status() {
	case domain.JobPaused:
		if !errorState {
			j.errorState = false
		}
		return nil
	case domain.JobActive:
		if err := j.status.Event(context.Background(), eventPause); err != nil {
			return err
		}
		j.errorState = errorState
		return nil
	}
	return ErrJobFinished
}

// Resume continues a paused job from its cursor. Resuming an active job
// is a no-op.
func (j *Job) Resume() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.Status() {
	case domain.JobActive:
		return nil
	case domain.JobPaused:
		if err := j.status.Event(context.Background(), eventResume); err != nil {
			return err
		}
		j.errorState = false
		return nil
	}
	return ErrJobFinished
}

// Stop ends the job and cancels its context
func (j *Job) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status().Terminal() {
		return ErrJobFinished
	}
	if err := j.status.Event(context.Background(), eventStop); err != nil {
		return err
	}
	j.cancel()
	return nil
}

// Complete marks an active job as done
func (j *Job) Complete() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.Status() != domain.JobActive {
		return ErrJobFinished
	}
	return j.status.Event(context.Background(), eventComplete)
}

// WaitWhilePaused polls until the job is active again. It returns false
// when the job was stopped meanwhile.
func (j *Job) WaitWhilePaused(poll time.Duration) bool {
	for {
		switch j.Status() {
		case domain.JobActive:
			return true
		case domain.JobPaused:
			select {
			case <-j.ctx.Done():
				return false
			case <-time.After(poll):
			}
		default:
			return false
		}
	}
}

// ErrorState reports whether the job was paused by a send failure
func (j *Job) ErrorState() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorState
}

// Cursor is the index of the next item to process
func (j *Job) Cursor() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cursor
}

// Record counts one processed item and advances the cursor
func (j *Job) Record(ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ok {
		j.tally.Sent++
	} else {
		j.tally.Failed++
	}
	j.cursor++
}

// Tally returns a snapshot of the results so far
func (j *Job) Tally() domain.Tally {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tally
}
