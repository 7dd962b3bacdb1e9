// Package progress tracks the last completed capture of the running job.
package progress

import (
	"sync"

	"github.com/vrsandeep/turntable-go/internal/models"
)

// Tracker is safe for one writer and any number of readers.
type Tracker struct {
	mu sync.RWMutex
	p  models.Progress
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Update records (round, image) as the last completed capture. It is
// called by the active sequencer once per stored image.
func (t *Tracker) Update(round, image int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Round = round
	t.p.Image = image
	t.p.Captured++
}

// Read returns a consistent snapshot.
func (t *Tracker) Read() models.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.p
}

// Reset returns the tracker to its zero state. Only the job controller
// calls it, between jobs.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p = models.Progress{}
}
