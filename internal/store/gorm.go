package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/intake/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) CreateProject(ctx context.Context, project *model.Project) error {
	return g.db.WithContext(ctx).Create(project).Error
}

func (g *GormStore) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	return &project, err
}

func (g *GormStore) SetIntakeCompleted(ctx context.Context, id uuid.UUID, completed bool) error {
	return g.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ?", id.String()).
		Update("intake_completed", completed).Error
}

func (g *GormStore) CreateReferenceFile(ctx context.Context, file *model.ReferenceFile) error {
	return g.db.WithContext(ctx).Create(file).Error
}

func (g *GormStore) GetReferenceFile(ctx context.Context, id uuid.UUID) (*model.ReferenceFile, error) {
	var file model.ReferenceFile
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferenceFileNotFound
	}
	return &file, err
}

func (g *GormStore) ListReferenceFiles(ctx context.Context, projectID uuid.UUID) ([]*model.ReferenceFile, error) {
	var files []*model.ReferenceFile
	err := g.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("created_at desc").
		Find(&files).Error
	return files, err
}

func (g *GormStore) UpdateReferenceFile(ctx context.Context, file *model.ReferenceFile) error {
	return g.db.WithContext(ctx).Save(file).Error
}

func (g *GormStore) CreateExtractionJob(ctx context.Context, job *model.ExtractionJob) error {
	return g.db.WithContext(ctx).Create(job).Error
}

func (g *GormStore) GetExtractionJob(ctx context.Context, id uuid.UUID) (*model.ExtractionJob, error) {
	var job model.ExtractionJob
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExtractionJobNotFound
	}
	return &job, err
}

func (g *GormStore) ListExtractionJobs(ctx context.Context, projectID uuid.UUID) ([]*model.ExtractionJob, error) {
	var jobs []*model.ExtractionJob
	err := g.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("created_at desc").
		Find(&jobs).Error
	return jobs, err
}

func (g *GormStore) GetActiveJobForFile(ctx context.Context, fileID uuid.UUID) (*model.ExtractionJob, error) {
	var job model.ExtractionJob
	err := g.db.WithContext(ctx).
		Where("file_id = ? AND status IN (?)", fileID.String(), []string{model.JobStatusQueued, model.JobStatusExtracting}).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrActiveJobNotFound
	}
	return &job, err
}

func (g *GormStore) UpdateExtractionJob(ctx context.Context, job *model.ExtractionJob) error {
	return g.db.WithContext(ctx).Save(job).Error
}

func (g *GormStore) FinishExtractionJob(ctx context.Context, job *model.ExtractionJob) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.ExtractionJob{}).
		Where("id = ? AND status IN (?)", job.ID, []string{model.JobStatusQueued, model.JobStatusExtracting}).
		Updates(map[string]interface{}{
			"status":       job.Status,
			"finished_at":  job.FinishedAt,
			"error":        job.Error,
			"raw_response": job.RawResponse,
		})
	return res.RowsAffected > 0, res.Error
}

func (g *GormStore) ListStaleJobs(ctx context.Context, before time.Time) ([]*model.ExtractionJob, error) {
	var jobs []*model.ExtractionJob
	err := g.db.WithContext(ctx).
		Where("status IN (?) AND created_at < ?", []string{model.JobStatusQueued, model.JobStatusExtracting}, before).
		Order("created_at asc").
		Find(&jobs).Error
	return jobs, err
}

func (g *GormStore) CreateVersion(ctx context.Context, version *model.Version) error {
	return g.db.WithContext(ctx).Create(version).Error
}

func (g *GormStore) GetVersion(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	var version model.Version
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	return &version, err
}

func (g *GormStore) ListVersions(ctx context.Context, projectID uuid.UUID) ([]*model.Version, error) {
	var versions []*model.Version
	err := g.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("number desc").
		Find(&versions).Error
	return versions, err
}

func (g *GormStore) MaxVersionNumber(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var max *int64
	err := g.db.WithContext(ctx).Model(&model.Version{}).
		Where("project_id = ?", projectID.String()).
		Select("max(number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (g *GormStore) GetAggregateVersion(ctx context.Context, projectID uuid.UUID) (*model.Version, error) {
	var version model.Version
	err := g.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("number asc").
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVersionNotFound
	}
	return &version, err
}

func (g *GormStore) SwapVersionContent(ctx context.Context, id uuid.UUID, oldContent, newContent string) (bool, error) {
	res := g.db.WithContext(ctx).Model(&model.Version{}).
		Where("id = ? AND content = ?", id.String(), oldContent).
		Update("content", newContent)
	return res.RowsAffected > 0, res.Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
