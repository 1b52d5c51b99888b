package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the poll cycle used when none is configured.
const DefaultInterval = 5 * time.Second

// Snapshot is one observed read of a project's intake state.
type Snapshot struct {
	Files []*model.ReferenceFile
	Jobs  []*model.ExtractionJob
}

// Poller re-reads job and file state for one project on a fixed
// interval and hands changed snapshots to the callback. It is
// eventually consistent with the write path and never blocks it, stale
// reads between cycles are expected.
type Poller struct {
	store     store.Store
	projectID uuid.UUID
	interval  time.Duration
	onChange  func(Snapshot)
	done      chan struct{}
	stopOnce  sync.Once
	last      string
}

// New creates a poller for projectID. A non-positive interval falls
// back to DefaultInterval.
func New(store store.Store, projectID uuid.UUID, interval time.Duration, onChange func(Snapshot)) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		store:     store,
		projectID: projectID,
		interval:  interval,
		onChange:  onChange,
		done:      make(chan struct{}),
	}
}

// Run polls until Stop is called or ctx is done. The first cycle fires
// immediately so consumers see the current state without waiting a full
// interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Stop ends the poll loop. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
}

func (p *Poller) poll(ctx context.Context) {
	files, err := p.store.ListReferenceFiles(ctx, p.projectID)
	if err != nil {
		logrus.Errorf("polling files for project %s: %v", p.projectID, err)
		return
	}

	jobs, err := p.store.ListExtractionJobs(ctx, p.projectID)
	if err != nil {
		logrus.Errorf("polling jobs for project %s: %v", p.projectID, err)
		return
	}

	print := fingerprint(files, jobs)
	if print == p.last {
		return
	}
	p.last = print

	if p.onChange != nil {
		p.onChange(Snapshot{Files: files, Jobs: jobs})
	}
}

// fingerprint captures the observable intake state, a cycle that reads
// the same fingerprint is a no-op.
func fingerprint(files []*model.ReferenceFile, jobs []*model.ExtractionJob) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "f:%s=%s;", f.ID, f.Status)
	}
	for _, j := range jobs {
		fmt.Fprintf(&sb, "j:%s=%s;", j.ID, j.Status)
	}
	return sb.String()
}
