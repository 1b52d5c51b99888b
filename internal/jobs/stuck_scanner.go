package jobs

import (
	"context"
	"time"

	"github.com/emrgen/intake/internal/store"
	"github.com/sirupsen/logrus"
)

// StuckJobScanner reports extraction jobs that never reached a terminal
// callback. It only observes: there is no cancellation for a dispatched
// job, an abandoned one is retried by registering the source again.
type StuckJobScanner struct {
	store store.Store
	age   time.Duration
}

// NewStuckJobScanner creates a scanner flagging non-terminal jobs older
// than age.
func NewStuckJobScanner(store store.Store, age time.Duration) *StuckJobScanner {
	return &StuckJobScanner{
		store: store,
		age:   age,
	}
}

func (s *StuckJobScanner) Schedule() string {
	return "@every 1m"
}

func (s *StuckJobScanner) Run() {
	jobs, err := s.store.ListStaleJobs(context.TODO(), time.Now().Add(-s.age))
	if err != nil {
		logrus.Errorf("scanning for stuck jobs: %v", err)
		return
	}

	for _, job := range jobs {
		logrus.Warnf("job %s (file %s) stuck in %s since %s", job.ID, job.FileID, job.Status, job.CreatedAt.Format(time.RFC3339))
	}
}
