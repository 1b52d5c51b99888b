package store

import (
	"context"
	"time"

	"github.com/emrgen/intake/internal/model"
	"github.com/google/uuid"
)

type Store interface {
	ProjectStore
	ReferenceFileStore
	ExtractionJobStore
	VersionStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type ProjectStore interface {
	// CreateProject creates a new project row.
	CreateProject(ctx context.Context, project *model.Project) error
	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// SetIntakeCompleted flips the intake_completed flag for a project.
	SetIntakeCompleted(ctx context.Context, id uuid.UUID, completed bool) error
}

type ReferenceFileStore interface {
	// CreateReferenceFile creates a new reference file.
	CreateReferenceFile(ctx context.Context, file *model.ReferenceFile) error
	// GetReferenceFile retrieves a reference file by ID.
	GetReferenceFile(ctx context.Context, id uuid.UUID) (*model.ReferenceFile, error)
	// ListReferenceFiles retrieves the reference files of a project.
	ListReferenceFiles(ctx context.Context, projectID uuid.UUID) ([]*model.ReferenceFile, error)
	// UpdateReferenceFile overwrites a reference file row.
	UpdateReferenceFile(ctx context.Context, file *model.ReferenceFile) error
}

type ExtractionJobStore interface {
	// CreateExtractionJob creates a new extraction job.
	CreateExtractionJob(ctx context.Context, job *model.ExtractionJob) error
	// GetExtractionJob retrieves an extraction job by ID.
	GetExtractionJob(ctx context.Context, id uuid.UUID) (*model.ExtractionJob, error)
	// ListExtractionJobs retrieves the extraction jobs of a project.
	ListExtractionJobs(ctx context.Context, projectID uuid.UUID) ([]*model.ExtractionJob, error)
	// GetActiveJobForFile retrieves the non-terminal job of a file, if any.
	GetActiveJobForFile(ctx context.Context, fileID uuid.UUID) (*model.ExtractionJob, error)
	// UpdateExtractionJob overwrites an extraction job row.
	UpdateExtractionJob(ctx context.Context, job *model.ExtractionJob) error
	// FinishExtractionJob writes job's terminal fields guarded on the row
	// still being non-terminal, and reports whether the transition
	// happened. The guard arbitrates duplicate and conflicting terminal
	// callbacks across writer processes.
	FinishExtractionJob(ctx context.Context, job *model.ExtractionJob) (bool, error)
	// ListStaleJobs retrieves non-terminal jobs created before the cutoff.
	ListStaleJobs(ctx context.Context, before time.Time) ([]*model.ExtractionJob, error)
}

type VersionStore interface {
	// CreateVersion inserts a new immutable version row.
	CreateVersion(ctx context.Context, version *model.Version) error
	// GetVersion retrieves a version by ID.
	GetVersion(ctx context.Context, id uuid.UUID) (*model.Version, error)
	// ListVersions retrieves the versions of a project, number descending.
	ListVersions(ctx context.Context, projectID uuid.UUID) ([]*model.Version, error)
	// MaxVersionNumber returns the highest version number of a project, 0 if none.
	MaxVersionNumber(ctx context.Context, projectID uuid.UUID) (int64, error)
	// GetAggregateVersion retrieves the lowest numbered version of a project.
	GetAggregateVersion(ctx context.Context, projectID uuid.UUID) (*model.Version, error)
	// SwapVersionContent replaces the content of a version row guarded on
	// the current content still being oldContent, and reports whether the
	// swap happened. Reserved for the aggregate append path, every other
	// version is immutable. The guard makes the read-modify-write safe
	// across writer processes sharing one database; sqlite has no
	// SELECT ... FOR UPDATE, so callers retry instead of locking.
	SwapVersionContent(ctx context.Context, id uuid.UUID, oldContent, newContent string) (bool, error)
}
