package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// HistoryPruner deletes old job history rows. *store.Store implements it.
type HistoryPruner interface {
	PruneJobRuns(cutoff time.Time) (int64, error)
}

// StartScheduler starts the background scheduler that keeps the job
// history within its retention window. It returns nil when pruning is
// disabled (interval or retention of 0).
func StartScheduler(pruner HistoryPruner, retentionDays, intervalHours int) *gocron.Scheduler {
	if retentionDays <= 0 || intervalHours <= 0 {
		log.Println("Job history pruning is disabled.")
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	jobID := "history-prune"
	log.Printf("Scheduling job: '%s' to run every %d hours.", jobID, intervalHours)
	_, err := s.Every(intervalHours).Hours().Do(func() {
		PruneHistory(pruner, retentionDays, time.Now())
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", jobID, err)
		return nil
	}

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

// PruneHistory removes finished runs older than retentionDays.
func PruneHistory(pruner HistoryPruner, retentionDays int, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	removed, err := pruner.PruneJobRuns(cutoff)
	if err != nil {
		log.Printf("Job history pruning failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Pruned %d job runs older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
