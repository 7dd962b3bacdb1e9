package models

import "time"

// Job lifecycle states reported by the controller.
const (
	JobStateIdle      = "idle"
	JobStateRunning   = "running"
	JobStateCompleted = "completed"
	JobStateCancelled = "cancelled"
	JobStateFailed    = "failed"
)

// JobSpec describes one acquisition job: Rounds[i] is the number of
// images to capture during round i.
type JobSpec struct {
	Rounds []int `json:"rounds"`
}

// Total returns the number of images a completed job produces.
func (s JobSpec) Total() int {
	total := 0
	for _, n := range s.Rounds {
		total += n
	}
	return total
}

// Clone returns a copy that does not share the Rounds backing array.
func (s JobSpec) Clone() JobSpec {
	rounds := make([]int, len(s.Rounds))
	copy(rounds, s.Rounds)
	return JobSpec{Rounds: rounds}
}

// JobStatus is the controller's view of the current (or last) job.
type JobStatus struct {
	ID        string    `json:"id"`
	State     string    `json:"state"` // "idle", "running", "completed", "cancelled", "failed"
	Message   string    `json:"message"`
	Rounds    []int     `json:"rounds"`
	Total     int       `json:"total"`
	StartTime time.Time `json:"start_time,omitzero"`
	EndTime   time.Time `json:"end_time,omitzero"`
}

// Done reports whether the job reached a terminal state.
func (s JobStatus) Done() bool {
	switch s.State {
	case JobStateCompleted, JobStateCancelled, JobStateFailed:
		return true
	}
	return false
}

// JobRun is a persisted job history row.
type JobRun struct {
	ID         string     `json:"id"`
	Rounds     []int      `json:"rounds"`
	Total      int        `json:"total"`
	Captured   int        `json:"captured"`
	State      string     `json:"state"`
	Message    string     `json:"message"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
