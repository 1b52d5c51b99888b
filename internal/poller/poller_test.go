package poller

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) store.Store {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "intake.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	return store.NewGormStore(db)
}

func TestPoller_ReportsChanges(t *testing.T) {
	docStore := setupStore(t)
	projectID := uuid.New()

	file := &model.ReferenceFile{
		ID:         uuid.New().String(),
		ProjectID:  projectID.String(),
		UploaderID: uuid.New().String(),
		Source:     "/data/a.pdf",
		Name:       "a.pdf",
		Kind:       model.SourceKindFile,
		Status:     model.FileStatusQueued,
		Meta:       "{}",
	}
	require.NoError(t, docStore.CreateReferenceFile(context.TODO(), file))

	job := &model.ExtractionJob{
		ID:          uuid.New().String(),
		FileID:      file.ID,
		ProjectID:   projectID.String(),
		RequesterID: uuid.New().String(),
		Kind:        model.JobKindFileParse,
		Status:      model.JobStatusQueued,
	}
	require.NoError(t, docStore.CreateExtractionJob(context.TODO(), job))

	snapshots := make(chan Snapshot, 16)
	poller := New(docStore, projectID, 20*time.Millisecond, func(s Snapshot) {
		snapshots <- s
	})
	defer poller.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	// the first cycle fires immediately with the current state
	select {
	case snapshot := <-snapshots:
		require.Len(t, snapshot.Files, 1)
		require.Len(t, snapshot.Jobs, 1)
		assert.Equal(t, model.FileStatusQueued, snapshot.Files[0].Status)
		assert.Equal(t, model.JobStatusQueued, snapshot.Jobs[0].Status)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	// a status change shows up within a cycle or two
	job.Status = model.JobStatusExtracting
	require.NoError(t, docStore.UpdateExtractionJob(context.TODO(), job))

	select {
	case snapshot := <-snapshots:
		assert.Equal(t, model.JobStatusExtracting, snapshot.Jobs[0].Status)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after job update")
	}
}

func TestPoller_SkipsUnchangedState(t *testing.T) {
	docStore := setupStore(t)
	projectID := uuid.New()

	file := &model.ReferenceFile{
		ID:         uuid.New().String(),
		ProjectID:  projectID.String(),
		UploaderID: uuid.New().String(),
		Source:     "/data/a.pdf",
		Name:       "a.pdf",
		Kind:       model.SourceKindFile,
		Status:     model.FileStatusQueued,
		Meta:       "{}",
	}
	require.NoError(t, docStore.CreateReferenceFile(context.TODO(), file))

	snapshots := make(chan Snapshot, 16)
	poller := New(docStore, projectID, 20*time.Millisecond, func(s Snapshot) {
		snapshots <- s
	})
	defer poller.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	select {
	case <-snapshots:
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	// nothing changes across several cycles, the callback stays quiet
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, snapshots)
}

func TestPoller_StopEndsRun(t *testing.T) {
	docStore := setupStore(t)

	poller := New(docStore, uuid.New(), 20*time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		poller.Run(context.Background())
		close(done)
	}()

	poller.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	// stopping again must not panic
	poller.Stop()
}
