package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vrsandeep/turntable-go/internal/models"
	"github.com/vrsandeep/turntable-go/internal/sequencer"
)

// Runner executes one acquisition job. *sequencer.Sequencer implements it.
type Runner interface {
	Validate(spec models.JobSpec) error
	Run(ctx context.Context, spec models.JobSpec, onCapture func(round, image int)) (sequencer.Result, error)
}

// ImageStore is the part of *imagestore.Store the controller needs.
type ImageStore interface {
	Reset() error
}

// ProgressTracker is the part of *progress.Tracker the controller needs.
type ProgressTracker interface {
	Read() models.Progress
	Reset()
}

// Recorder persists job history. *store.Store implements it.
type Recorder interface {
	CreateJobRun(run *models.JobRun) error
	FinishJobRun(id, state, message string, captured int, finishedAt time.Time) error
}

// Notifier publishes progress updates. *websocket.Hub implements it.
type Notifier interface {
	BroadcastJSON(v any)
}

// Option configures optional collaborators of a Controller.
type Option func(*Controller)

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// Controller owns the lifecycle of acquisition jobs. At most one job runs
// at any time: Submit cancels and waits for the previous job before it
// resets shared state and starts the next one.
type Controller struct {
	// mu serializes Submit, Cancel and Shutdown and guards cancel and done.
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	statusMu sync.RWMutex
	status   models.JobStatus

	runner   Runner
	images   ImageStore
	tracker  ProgressTracker
	recorder Recorder
	notifier Notifier
}

func NewController(runner Runner, images ImageStore, tracker ProgressTracker, opts ...Option) *Controller {
	c := &Controller{
		runner:  runner,
		images:  images,
		tracker: tracker,
		status:  models.JobStatus{State: models.JobStateIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit replaces whatever job is running with a new one built from spec.
// It returns once the new job has been launched. If the image store cannot
// be reset no job is started and the error is returned.
func (c *Controller) Submit(spec models.JobSpec) (models.JobStatus, error) {
	if err := c.runner.Validate(spec); err != nil {
		return models.JobStatus{}, err
	}
	spec = spec.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.drainLocked()

	status := models.JobStatus{
		ID:        uuid.NewString(),
		State:     models.JobStateRunning,
		Message:   "Job started...",
		Rounds:    spec.Rounds,
		Total:     spec.Total(),
		StartTime: time.Now(),
	}

	// Progress readers see either the old job with its progress or the new
	// one with none.
	c.statusMu.Lock()
	c.tracker.Reset()
	c.status = status
	c.statusMu.Unlock()

	if err := c.images.Reset(); err != nil {
		status.State = models.JobStateFailed
		status.Message = fmt.Sprintf("Failed to reset image store: %v", err)
		status.EndTime = time.Now()
		c.setStatus(status)
		c.record(status)
		c.publish(status)
		return status, fmt.Errorf("failed to reset image store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	c.record(status)
	c.publish(status)

	log.Printf("Starting job %s with rounds %v", status.ID, spec.Rounds)
	go c.run(ctx, spec, status, done)
	return status, nil
}

// Cancel stops the running job, if any, and waits for it to exit. Images
// and progress of the cancelled job stay available until the next Submit.
func (c *Controller) Cancel() models.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drainLocked()
	return c.Status()
}

// Shutdown cancels the running job and waits for it to exit or for ctx to
// expire, whichever comes first.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	select {
	case <-c.done:
		c.cancel = nil
		c.done = nil
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job did not stop before shutdown deadline: %w", ctx.Err())
	}
}

// Status returns a snapshot of the current or last job.
func (c *Controller) Status() models.JobStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Progress combines the tracker snapshot with the job status.
func (c *Controller) Progress() models.ProgressReport {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return models.NewProgressReport(c.tracker.Read(), c.status)
}

// drainLocked cancels the live job and blocks until its goroutine has
// finished. The wait is bounded by one capture step of the sequencer.
func (c *Controller) drainLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

func (c *Controller) run(ctx context.Context, spec models.JobSpec, status models.JobStatus, done chan struct{}) {
	defer close(done)

	var (
		res sequencer.Result
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Job '%s' panicked: %v", status.ID, r)
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		res, err = c.runner.Run(ctx, spec, func(round, image int) {
			c.publish(status)
		})
	}()

	status.EndTime = time.Now()
	switch {
	case err != nil:
		status.State = models.JobStateFailed
		status.Message = err.Error()
		log.Printf("Job %s failed after %d images: %v", status.ID, res.Captured, err)
	case res.Cancelled:
		status.State = models.JobStateCancelled
		status.Message = fmt.Sprintf("Job cancelled after %d of %d images.", res.Captured, status.Total)
		log.Printf("Job %s cancelled after %d images", status.ID, res.Captured)
	default:
		status.State = models.JobStateCompleted
		status.Message = "Job completed successfully."
		log.Printf("Finished job %s: %d images", status.ID, res.Captured)
	}

	// History is written before the status turns terminal, and both happen
	// before done is closed, so a following Submit always overwrites them.
	c.finishRecord(status, res.Captured)
	c.setStatus(status)
	c.publish(status)
}

func (c *Controller) setStatus(status models.JobStatus) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status = status
}

func (c *Controller) record(status models.JobStatus) {
	if c.recorder == nil {
		return
	}
	run := &models.JobRun{
		ID:        status.ID,
		Rounds:    status.Rounds,
		Total:     status.Total,
		State:     status.State,
		Message:   status.Message,
		StartedAt: status.StartTime,
	}
	if err := c.recorder.CreateJobRun(run); err != nil {
		log.Printf("Warning: could not record job %s: %v", status.ID, err)
		return
	}
	if status.Done() {
		c.finishRecord(status, 0)
	}
}

func (c *Controller) finishRecord(status models.JobStatus, captured int) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.FinishJobRun(status.ID, status.State, status.Message, captured, status.EndTime); err != nil {
		log.Printf("Warning: could not record result of job %s: %v", status.ID, err)
	}
}

func (c *Controller) publish(status models.JobStatus) {
	if c.notifier == nil {
		return
	}
	c.notifier.BroadcastJSON(models.ProgressUpdate{
		JobID:    status.ID,
		Message:  status.Message,
		Progress: c.tracker.Read(),
		Total:    status.Total,
		Status:   status.State,
		Done:     status.Done(),
	})
}
