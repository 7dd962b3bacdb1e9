package models

// Progress holds the 0-based indices of the last completed capture.
// Captured counts the images completed in the current job, so the zero
// value (nothing captured yet) can be told apart from "first image done".
type Progress struct {
	Round    int `json:"round"`
	Image    int `json:"image"`
	Captured int `json:"captured"`
}

// ProgressReport is the response body of the progress query. Round and
// Image are 1-based counts of the last completed capture, 0 before the
// first capture of a job.
type ProgressReport struct {
	JobID    string `json:"job_id"`
	State    string `json:"state"`
	Round    int    `json:"round"`
	Image    int    `json:"image"`
	Captured int    `json:"captured"`
	Total    int    `json:"total"`
	Message  string `json:"message,omitempty"`
}

// NewProgressReport combines a tracker snapshot with the job status.
func NewProgressReport(p Progress, status JobStatus) ProgressReport {
	report := ProgressReport{
		JobID:    status.ID,
		State:    status.State,
		Captured: p.Captured,
		Total:    status.Total,
		Message:  status.Message,
	}
	if p.Captured > 0 {
		report.Round = p.Round + 1
		report.Image = p.Image + 1
	}
	return report
}

// ProgressUpdate is broadcast to websocket clients.
type ProgressUpdate struct {
	JobID    string   `json:"jobId"`
	Message  string   `json:"message"`
	Progress Progress `json:"progress"`
	Total    int      `json:"total"`
	Status   string   `json:"status"` // e.g. "running", "completed", "failed"
	Done     bool     `json:"done"`
}
