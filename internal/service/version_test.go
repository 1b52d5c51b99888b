package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/emrgen/intake/internal/compress"
	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/store"
	"github.com/emrgen/intake/internal/tester"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestVersionService_Create(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	versions := NewVersionService(compress.NewGZip(), store.NewGormStore(tester.TestDB()))

	projectID := uuid.New()
	actorID := uuid.New()

	first, err := versions.Create(context.TODO(), projectID, actorID, "first content", "v1", "")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, "first content", first.Content)

	second, err := versions.Create(context.TODO(), projectID, actorID, "second content", "v2", "")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), second.Number)

	// content survives the compression roundtrip
	got, err := versions.Get(context.TODO(), uuid.MustParse(second.ID))
	assert.NoError(t, err)
	assert.Equal(t, "second content", got.Content)
	assert.Equal(t, "gzip", got.Compression)

	// numbering is per project
	other, err := versions.Create(context.TODO(), uuid.New(), actorID, "other", "v1", "")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), other.Number)
}

func TestVersionService_ConcurrentCreate(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	versions := NewVersionService(compress.NewNop(), store.NewGormStore(tester.TestDB()))

	projectID := uuid.New()
	actorID := uuid.New()

	const workers = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	numbers := make(map[int64]bool)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			version, err := versions.Create(context.TODO(), projectID, actorID, fmt.Sprintf("content %d", i), "", "")
			assert.NoError(t, err)

			mu.Lock()
			numbers[version.Number] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// every writer got a distinct number and the sequence has no gaps
	assert.Len(t, numbers, workers)
	for n := int64(1); n <= workers; n++ {
		assert.True(t, numbers[n], "missing version number %d", n)
	}
}

func TestVersionService_List(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	versions := NewVersionService(compress.NewNop(), store.NewGormStore(tester.TestDB()))

	projectID := uuid.New()
	actorID := uuid.New()

	for i := 1; i <= 3; i++ {
		_, err := versions.Create(context.TODO(), projectID, actorID, fmt.Sprintf("content %d", i), "", "")
		assert.NoError(t, err)
	}

	listed, err := versions.List(context.TODO(), projectID)
	assert.NoError(t, err)
	assert.Len(t, listed, 3)

	// most recent first
	assert.Equal(t, int64(3), listed[0].Number)
	assert.Equal(t, int64(2), listed[1].Number)
	assert.Equal(t, int64(1), listed[2].Number)
	assert.Equal(t, "content 3", listed[0].Content)
}

func TestVersionService_Restore(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	versions := NewVersionService(compress.NewGZip(), store.NewGormStore(tester.TestDB()))

	projectID := uuid.New()
	actorID := uuid.New()

	old, err := versions.Create(context.TODO(), projectID, actorID, "old content", "v1", "")
	assert.NoError(t, err)

	_, err = versions.Create(context.TODO(), projectID, actorID, "new content", "v2", "")
	assert.NoError(t, err)

	restored, err := versions.Restore(context.TODO(), projectID, uuid.MustParse(old.ID), actorID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), restored.Number)
	assert.Equal(t, "old content", restored.Content)
	assert.Equal(t, "Restored from v1", restored.Title)
	assert.NotEqual(t, old.ID, restored.ID)

	// the restored-from version is untouched
	got, err := versions.Get(context.TODO(), uuid.MustParse(old.ID))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.Number)
	assert.Equal(t, "old content", got.Content)
}

func TestVersionService_AppendToAggregate(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	versions := NewVersionService(compress.NewNop(), store.NewGormStore(tester.TestDB()))

	projectID := uuid.New()
	actorID := uuid.New()

	aggregate, err := versions.Create(context.TODO(), projectID, actorID, "base", "v1", "")
	assert.NoError(t, err)

	snapshot, err := versions.Create(context.TODO(), projectID, actorID, "snapshot", "v2", "")
	assert.NoError(t, err)

	// concurrent appends from two extraction callbacks must both survive
	var wg sync.WaitGroup
	for _, text := range []string{"alpha", "beta"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			id, err := versions.AppendToAggregate(context.TODO(), projectID, text, text+".txt")
			assert.NoError(t, err)
			assert.Equal(t, aggregate.ID, id.String())
		}(text)
	}
	wg.Wait()

	got, err := versions.Get(context.TODO(), uuid.MustParse(aggregate.ID))
	assert.NoError(t, err)
	assert.Contains(t, got.Content, "base")
	assert.Contains(t, got.Content, "--- alpha.txt ---")
	assert.Contains(t, got.Content, "alpha")
	assert.Contains(t, got.Content, "--- beta.txt ---")
	assert.Contains(t, got.Content, "beta")

	// only the aggregate (lowest numbered) version changes
	untouched, err := versions.Get(context.TODO(), uuid.MustParse(snapshot.ID))
	assert.NoError(t, err)
	assert.Equal(t, "snapshot", untouched.Content)
}

func TestVersionService_AppendToAggregate_TwoProcesses(t *testing.T) {
	// the api server and the worker each build their own service on a
	// separate connection to the shared database, so the in-process
	// project lock does not serialize them
	path := filepath.Join(t.TempDir(), "intake.db")

	openService := func() *VersionService {
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		require.NoError(t, err)
		require.NoError(t, model.Migrate(db))
		return NewVersionService(compress.NewNop(), store.NewGormStore(db))
	}

	first := openService()
	second := openService()

	projectID := uuid.New()
	actorID := uuid.New()

	aggregate, err := first.Create(context.TODO(), projectID, actorID, "", "v1", "")
	require.NoError(t, err)

	const perWriter = 8

	var wg sync.WaitGroup
	for i, writer := range []*VersionService{first, second} {
		wg.Add(1)
		go func(prefix string, writer *VersionService) {
			defer wg.Done()
			for n := 0; n < perWriter; n++ {
				_, err := writer.AppendToAggregate(context.TODO(), projectID, fmt.Sprintf("%s text %d", prefix, n), prefix+".pdf")
				assert.NoError(t, err)
			}
		}(fmt.Sprintf("writer%d", i), writer)
	}
	wg.Wait()

	// every append from both writers survives, none is lost
	got, err := first.Get(context.TODO(), uuid.MustParse(aggregate.ID))
	require.NoError(t, err)
	for _, prefix := range []string{"writer0", "writer1"} {
		for n := 0; n < perWriter; n++ {
			assert.Contains(t, got.Content, fmt.Sprintf("%s text %d", prefix, n))
		}
	}
}

func TestVersionService_AppendToAggregate_MissingAggregate(t *testing.T) {
	tester.RemoveDBFile()
	tester.Setup()

	versions := NewVersionService(compress.NewNop(), store.NewGormStore(tester.TestDB()))

	_, err := versions.AppendToAggregate(context.TODO(), uuid.New(), "text", "a.txt")
	assert.ErrorIs(t, err, ErrAggregateNotFound)
}
