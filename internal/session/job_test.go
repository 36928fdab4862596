package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reydbot/internal/domain"
)

func TestJob_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		actions  func(t *testing.T, j *Job) error
		expected domain.JobStatus
		wantErr  error
	}{
		{
			name:     "pause",
			actions:  func(t *testing.T, j *Job) error { return j.Pause(false) },
			expected: domain.JobPaused,
		},
		{
			name: "pause twice is a no-op",
			actions: func(t *testing.T, j *Job) error {
				require.NoError(t, j.Pause(false))
				return j.Pause(false)
			},
			expected: domain.JobPaused,
		},
		{
			name: "resume twice is a no-op",
			actions: func(t *testing.T, j *Job) error {
				require.NoError(t, j.Pause(true))
				require.NoError(t, j.Resume())
				return j.Resume()
			},
			expected: domain.JobActive,
		},
		{
			name: "stop paused job",
			actions: func(t *testing.T, j *Job) error {
				require.NoError(t, j.Pause(false))
				return j.Stop()
			},
			expected: domain.JobStopped,
		},
		{
			name: "stop is terminal",
			actions: func(t *testing.T, j *Job) error {
				require.NoError(t, j.Stop())
				return j.Resume()
			},
			expected: domain.JobStopped,
			wantErr:  ErrJobFinished,
		},
		{
			name: "paused job cannot complete",
			actions: func(t *testing.T, j *Job) error {
				require.NoError(t, j.Pause(false))
				return j.Complete()
			},
			expected: domain.JobPaused,
			wantErr:  ErrJobFinished,
		},
		{
			name:     "complete",
			actions:  func(t *testing.T, j *Job) error { return j.Complete() },
			expected: domain.JobCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJob(1, domain.JobBroadcast, 3)
			err := tt.actions(t, j)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, j.Status())
		})
	}
}

func TestJob_ErrorStateClearedOnResume(t *testing.T) {
	j := NewJob(1, domain.JobBroadcast, 1)
	require.NoError(t, j.Pause(true))
	assert.True(t, j.ErrorState())

	require.NoError(t, j.Resume())
	assert.False(t, j.ErrorState())
}

func TestJob_UserPauseOverridesErrorState(t *testing.T) {
	j := NewJob(1, domain.JobBroadcast, 1)
	require.NoError(t, j.Pause(true))
	require.True(t, j.ErrorState())

	require.NoError(t, j.Pause(false))
	assert.False(t, j.ErrorState())
	assert.Equal(t, domain.JobPaused, j.Status())

	// a later automatic pause does not take the job back from the user
	require.NoError(t, j.Pause(true))
	assert.False(t, j.ErrorState())
}

func TestJob_StopCancelsContext(t *testing.T) {
	j := NewJob(1, domain.JobRaid, 1)
	require.NoError(t, j.Stop())

	select {
	case <-j.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

func TestJob_WaitWhilePaused(t *testing.T) {
	j := NewJob(1, domain.JobBroadcast, 1)
	require.NoError(t, j.Pause(false))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = j.Resume()
	}()
	assert.True(t, j.WaitWhilePaused(5*time.Millisecond))

	require.NoError(t, j.Pause(false))
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = j.Stop()
	}()
	assert.False(t, j.WaitWhilePaused(5*time.Millisecond))
}

func TestJob_RecordAdvancesCursor(t *testing.T) {
	j := NewJob(1, domain.JobBroadcast, 3)
	j.Record(true)
	j.Record(false)

	assert.Equal(t, 2, j.Cursor())
	assert.Equal(t, domain.Tally{Total: 3, Sent: 1, Failed: 1}, j.Tally())
}

func TestJob_FinishClosesDone(t *testing.T) {
	j := NewJob(1, domain.JobScrape, 0)
	j.Finish()
	j.Finish()

	_, open := <-j.Done()
	assert.False(t, open)
}
