package domain

import "fmt"

// JobKind is the type of a background job
type JobKind string

const (
	JobRaid      JobKind = "raid"
	JobBroadcast JobKind = "broadcast"
	JobScrape    JobKind = "scrape"
)

// Title returns the user-facing job name
func (k JobKind) Title() string {
	switch k {
	case JobRaid:
		return "⚔️ Reyd"
	case JobBroadcast:
		return "📣 Reklama"
	case JobScrape:
		return "👥 AvtoYuser"
	}
	return string(k)
}

// Counter returns the user counter a job kind contributes to
func (k JobKind) Counter() Counter {
	switch k {
	case JobRaid:
		return CounterReyd
	case JobBroadcast:
		return CounterAds
	default:
		return CounterUsersGathered
	}
}

// JobStatus is the lifecycle status of a job
type JobStatus string

const (
	JobActive    JobStatus = "active"
	JobPaused    JobStatus = "paused"
	JobStopped   JobStatus = "stopped"
	JobCompleted JobStatus = "completed"
)

// Terminal reports whether no further transitions are possible
func (s JobStatus) Terminal() bool {
	return s == JobStopped || s == JobCompleted
}

// Tally is the running result of a job
type Tally struct {
	Total  int
	Sent   int
	Failed int
}

func (t Tally) String() string {
	return fmt.Sprintf("sent=%d, failed=%d, total=%d", t.Sent, t.Failed, t.Total)
}
