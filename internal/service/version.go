package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emrgen/intake/internal/compress"
	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewVersionService creates a new VersionService.
func NewVersionService(compress compress.Compress, store store.Store) *VersionService {
	return &VersionService{
		compress: compress,
		store:    store,
	}
}

// maxWriteAttempts bounds the retry loops on the two contended write
// paths (number allocation, aggregate append). The api server and the
// worker are separate processes sharing one database, so contention is
// settled in the store: a unique index for numbers, a guarded swap for
// the aggregate. Retries absorb both losing the guard and sqlite's
// whole-database write lock.
const maxWriteAttempts = 50

// VersionService owns the append-only version history of a project and
// the single sanctioned exception to it, the in-place aggregate append.
// Version number allocation and the aggregate append are serialized per
// project within a process and retried against the store across
// processes, everything else runs in parallel.
type VersionService struct {
	compress compress.Compress
	store    store.Store
	locks    sync.Map // project id -> *sync.Mutex
}

func (v *VersionService) projectLock(projectID uuid.UUID) *sync.Mutex {
	mu, _ := v.locks.LoadOrStore(projectID.String(), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create inserts a new immutable version numbered max(existing)+1.
// The max-then-insert sequence runs under the project lock inside one
// transaction; the unique index arbitrates between processes, a losing
// allocation re-reads and retries.
func (v *VersionService) Create(ctx context.Context, projectID, actorID uuid.UUID, content, title, description string) (*model.Version, error) {
	encoded, err := v.compress.Encode([]byte(content))
	if err != nil {
		return nil, err
	}

	version := &model.Version{
		ID:          uuid.New().String(),
		ProjectID:   projectID.String(),
		Title:       title,
		Description: description,
		Content:     string(encoded),
		Compression: v.compress.Name(),
		CreatedBy:   actorID.String(),
	}

	mu := v.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = v.store.Transaction(ctx, func(tx store.Store) error {
			max, err := tx.MaxVersionNumber(ctx, projectID)
			if err != nil {
				return err
			}

			version.Number = max + 1
			return tx.CreateVersion(ctx, version)
		})
		if err == nil {
			version.Content = content
			return version, nil
		}
		if duplicateNumber(err) || busyStore(err) {
			logrus.Warnf("version number allocation raced for project %s: %v", projectID, err)
			writeBackoff(attempt)
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: project %s number %d", ErrVersionNumberConflict, projectID, version.Number)
}

// Get retrieves a version with its content decoded.
func (v *VersionService) Get(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	version, err := v.store.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	return v.decode(version)
}

// List retrieves the versions of a project ordered by number descending.
// Consumers rely on the most-recent-first ordering.
func (v *VersionService) List(ctx context.Context, projectID uuid.UUID) ([]*model.Version, error) {
	versions, err := v.store.ListVersions(ctx, projectID)
	if err != nil {
		return nil, err
	}

	for i, version := range versions {
		if versions[i], err = v.decode(version); err != nil {
			return nil, err
		}
	}

	return versions, nil
}

// Restore creates a new, higher numbered version with the same content
// as the target. The restored-from version is never touched.
func (v *VersionService) Restore(ctx context.Context, projectID, versionID, actorID uuid.UUID) (*model.Version, error) {
	target, err := v.Get(ctx, versionID)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Restored from v%d", target.Number)
	return v.Create(ctx, projectID, actorID, target.Content, title, "")
}

// AppendToAggregate appends newContent, prefixed with a source
// attribution marker, to the project's aggregate (lowest numbered)
// version in place. The project lock serializes appenders within this
// process; across processes the read-modify-write is a guarded swap on
// the content read, so a concurrent append from another writer (the
// worker and the api server share one database) makes the swap miss and
// the loop re-read instead of losing either append. Returns the
// aggregate version id.
func (v *VersionService) AppendToAggregate(ctx context.Context, projectID uuid.UUID, newContent, sourceName string) (uuid.UUID, error) {
	mu := v.projectLock(projectID)
	mu.Lock()
	defer mu.Unlock()

	var aggregateID uuid.UUID
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var swapped bool
		err := v.store.Transaction(ctx, func(tx store.Store) error {
			aggregate, err := tx.GetAggregateVersion(ctx, projectID)
			if err != nil {
				if errors.Is(err, store.ErrVersionNotFound) {
					return fmt.Errorf("%w: project %s", ErrAggregateNotFound, projectID)
				}
				return err
			}

			codec := compress.ByName(aggregate.Compression)
			current, err := codec.Decode([]byte(aggregate.Content))
			if err != nil {
				return err
			}

			updated := string(current) + attributionMarker(sourceName) + newContent
			encoded, err := codec.Encode([]byte(updated))
			if err != nil {
				return err
			}

			aggregateID, err = uuid.Parse(aggregate.ID)
			if err != nil {
				return err
			}

			swapped, err = tx.SwapVersionContent(ctx, aggregateID, aggregate.Content, string(encoded))
			return err
		})
		if err != nil {
			if busyStore(err) {
				writeBackoff(attempt)
				continue
			}
			return uuid.Nil, err
		}
		if swapped {
			return aggregateID, nil
		}

		// another writer swapped first, re-read and append on top of it
		writeBackoff(attempt)
	}

	return uuid.Nil, fmt.Errorf("%w: aggregate of project %s", ErrStoreContention, projectID)
}

func (v *VersionService) decode(version *model.Version) (*model.Version, error) {
	codec := compress.ByName(version.Compression)
	content, err := codec.Decode([]byte(version.Content))
	if err != nil {
		return nil, err
	}

	version.Content = string(content)
	return version, nil
}

func attributionMarker(sourceName string) string {
	name := strings.TrimSpace(sourceName)
	if name == "" {
		name = "unknown source"
	}

	return fmt.Sprintf("\n\n--- %s ---\n\n", name)
}

func duplicateNumber(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(strings.ToLower(err.Error()), "unique")
}

// busyStore reports whether err is a transient whole-database lock,
// sqlite's answer to a second writer process.
func busyStore(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}

func writeBackoff(attempt int) {
	time.Sleep(time.Duration(attempt+1) * 2 * time.Millisecond)
}
