package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/emrgen/intake/internal/auth"
	"github.com/emrgen/intake/internal/cache"
	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/queue"
	"github.com/emrgen/intake/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewIntakeService creates a new IntakeService. The status cache is
// optional, pass nil to skip the best-effort status mirror.
func NewIntakeService(store store.Store, authorizer auth.ProjectAuthorizer, jobs queue.JobQueue, versions *VersionService, statuses cache.StatusCache) *IntakeService {
	return &IntakeService{
		store:    store,
		auth:     authorizer,
		jobs:     jobs,
		versions: versions,
		statuses: statuses,
	}
}

// IntakeService registers ingestion sources and owns the extraction job
// lifecycle: queued -> extracting -> {succeeded, failed}. The terminal
// transition is driven entirely by the worker callback, never by
// polling the worker.
type IntakeService struct {
	store    store.Store
	auth     auth.ProjectAuthorizer
	jobs     queue.JobQueue
	versions *VersionService
	statuses cache.StatusCache
}

// RegisterResult carries the ids of a freshly registered source.
type RegisterResult struct {
	FileID string `json:"file_id"`
	JobID  string `json:"job_id"`
}

// ExtractionResult is the worker callback payload. Delivery is
// at-least-once, ApplyResult tolerates duplicates.
type ExtractionResult struct {
	JobID        string   `json:"job_id"`
	Status       string   `json:"status"`
	Text         string   `json:"extracted_text,omitempty"`
	Chunks       []string `json:"extracted_chunks,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	RawResponse  string   `json:"raw_response,omitempty"`
}

// CreateProject creates a project together with its empty aggregate
// (v1) version, the precondition every later augmentation relies on.
func (s *IntakeService) CreateProject(ctx context.Context, actorID uuid.UUID, title string) (*model.Project, error) {
	project := &model.Project{
		ID:    uuid.New().String(),
		Title: title,
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	projectID, err := uuid.Parse(project.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.versions.Create(ctx, projectID, actorID, "", "v1", "aggregate intake target"); err != nil {
		return nil, err
	}

	return project, nil
}

// CompleteIntake flips the intake_completed flag. Once set, successful
// extraction results are folded into the aggregate automatically.
func (s *IntakeService) CompleteIntake(ctx context.Context, projectID uuid.UUID, completed bool) error {
	return s.store.SetIntakeCompleted(ctx, projectID, completed)
}

// RegisterSource records an ingestion source (file path or url),
// creates its queued reference file and extraction job in one
// transaction and dispatches the job to the worker queue. Dispatch is
// fire-and-forget: a publish failure is logged and the job stays
// visible as queued, retriable by re-registering.
func (s *IntakeService) RegisterSource(ctx context.Context, projectID, actorID uuid.UUID, source string) (*RegisterResult, error) {
	ok, err := s.auth.HasProjectAccess(ctx, projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: actor %s on project %s", ErrAccessDenied, actorID, projectID)
	}

	kind, jobKind, name, err := parseSource(source)
	if err != nil {
		return nil, err
	}

	file := &model.ReferenceFile{
		ID:         uuid.New().String(),
		ProjectID:  projectID.String(),
		UploaderID: actorID.String(),
		Source:     source,
		Name:       name,
		Kind:       kind,
		Status:     model.FileStatusQueued,
		Meta:       "{}",
	}

	job := &model.ExtractionJob{
		ID:          uuid.New().String(),
		FileID:      file.ID,
		ProjectID:   projectID.String(),
		RequesterID: actorID.String(),
		Kind:        jobKind,
		Status:      model.JobStatusQueued,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreateReferenceFile(ctx, file); err != nil {
			return err
		}
		return tx.CreateExtractionJob(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	if err := s.jobs.Publish(ctx, &queue.JobPayload{
		JobID:     job.ID,
		FileID:    file.ID,
		ProjectID: projectID.String(),
		Source:    source,
		Kind:      jobKind,
	}); err != nil {
		// worker dispatch failed, the job remains queued and can be
		// re-registered
		logrus.Errorf("worker dispatch failed for job %s: %v", job.ID, err)
	}

	return &RegisterResult{FileID: file.ID, JobID: job.ID}, nil
}

// MarkExtracting records the advisory queued -> extracting transition,
// set when the worker accepts the job. Any other starting state is left
// alone.
func (s *IntakeService) MarkExtracting(ctx context.Context, jobID uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx store.Store) error {
		job, err := tx.GetExtractionJob(ctx, jobID)
		if err != nil {
			return err
		}

		if job.Status != model.JobStatusQueued {
			logrus.Warnf("job %s is %s, not marking extracting", job.ID, job.Status)
			return nil
		}

		now := time.Now()
		job.Status = model.JobStatusExtracting
		job.StartedAt = &now
		if err := tx.UpdateExtractionJob(ctx, job); err != nil {
			return err
		}
		s.mirrorJobStatus(ctx, job.ID, job.Status)

		fileID, err := uuid.Parse(job.FileID)
		if err != nil {
			return err
		}

		file, err := tx.GetReferenceFile(ctx, fileID)
		if err != nil {
			return err
		}

		file.Status = model.FileStatusExtracting
		return tx.UpdateReferenceFile(ctx, file)
	})
}

// ApplyResult applies a terminal worker callback. It is idempotent and
// at-least-once safe: the terminal transition is a guarded update that
// only lands on a non-terminal row and commits first, then the file
// update and the aggregate append are attempted with per-step error
// logging, so a failure there never rolls back the terminal job state.
// When the guard misses the row was already terminal: a duplicate
// delivery is acknowledged without redoing anything, a conflicting one
// is warned about and dropped. Concurrent deliveries across processes
// settle on the guard, at most one proceeds to augment.
func (s *IntakeService) ApplyResult(ctx context.Context, result *ExtractionResult) error {
	jobID, err := uuid.Parse(result.JobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", result.JobID, err)
	}

	if !model.TerminalJobStatus(result.Status) {
		logrus.Warnf("ignoring non-terminal callback status %q for job %s", result.Status, jobID)
		return nil
	}

	job, err := s.store.GetExtractionJob(ctx, jobID)
	if err != nil {
		return err
	}

	// steps (a) and (b): transition the job and commit before touching
	// anything else
	now := time.Now()
	job.Status = result.Status
	job.FinishedAt = &now
	job.RawResponse = result.RawResponse
	job.Error = nil
	if result.ErrorMessage != "" {
		msg := result.ErrorMessage
		job.Error = &msg
	}
	finished, err := s.store.FinishExtractionJob(ctx, job)
	if err != nil {
		return err
	}
	if !finished {
		current, err := s.store.GetExtractionJob(ctx, jobID)
		if err != nil {
			return err
		}
		if current.Status != result.Status {
			logrus.Warnf("ignoring conflicting terminal callback %q for job %s, already %s", result.Status, jobID, current.Status)
		} else {
			logrus.Infof("duplicate terminal callback for job %s", jobID)
		}
		return nil
	}
	s.mirrorJobStatus(ctx, job.ID, job.Status)

	fileID, err := uuid.Parse(job.FileID)
	if err != nil {
		logrus.Errorf("job %s carries invalid file id %q: %v", job.ID, job.FileID, err)
		return nil
	}

	// step (c): mirror the result onto the reference file
	file, err := s.store.GetReferenceFile(ctx, fileID)
	if err != nil {
		logrus.Errorf("loading file %s for job %s: %v", fileID, job.ID, err)
		return nil
	}
	if err := s.applyFileResult(ctx, file, result); err != nil {
		logrus.Errorf("updating file %s for job %s: %v", file.ID, job.ID, err)
	}

	// step (d): fold the text into the aggregate, unless intake is still
	// open. Only the delivery that won the terminal transition gets here,
	// so a redelivered result cannot append twice.
	if result.Status == model.JobStatusSucceeded && result.Text != "" {
		if err := s.maybeAugment(ctx, job.ProjectID, result.Text, file.Name); err != nil {
			logrus.Errorf("augmenting aggregate for job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (s *IntakeService) applyFileResult(ctx context.Context, file *model.ReferenceFile, result *ExtractionResult) error {
	file.Text = nil
	file.Chunks = nil
	file.Error = nil

	if result.Status == model.JobStatusSucceeded {
		file.Status = model.FileStatusDone
		text := result.Text
		file.Text = &text
		if result.Chunks != nil {
			data, err := json.Marshal(result.Chunks)
			if err != nil {
				return err
			}
			chunks := string(data)
			file.Chunks = &chunks
		}
	} else {
		file.Status = model.FileStatusFailed
		if result.ErrorMessage != "" {
			msg := result.ErrorMessage
			file.Error = &msg
		}
	}

	if err := s.store.UpdateReferenceFile(ctx, file); err != nil {
		return err
	}
	s.mirrorFileStatus(ctx, file.ID, file.Status)

	return nil
}

func (s *IntakeService) maybeAugment(ctx context.Context, projectID, text, sourceName string) error {
	pid, err := uuid.Parse(projectID)
	if err != nil {
		return err
	}

	project, err := s.store.GetProject(ctx, pid)
	if err != nil {
		return err
	}

	if !project.IntakeCompleted {
		logrus.Infof("intake not completed for project %s, holding extracted text for manual augmentation", projectID)
		return nil
	}

	_, err = s.versions.AppendToAggregate(ctx, pid, text, sourceName)
	return err
}

// GetJob retrieves an extraction job.
func (s *IntakeService) GetJob(ctx context.Context, jobID uuid.UUID) (*model.ExtractionJob, error) {
	return s.store.GetExtractionJob(ctx, jobID)
}

// ListReferenceFiles retrieves the reference files of a project.
func (s *IntakeService) ListReferenceFiles(ctx context.Context, projectID uuid.UUID) ([]*model.ReferenceFile, error) {
	return s.store.ListReferenceFiles(ctx, projectID)
}

// ListJobs retrieves the extraction jobs of a project.
func (s *IntakeService) ListJobs(ctx context.Context, projectID uuid.UUID) ([]*model.ExtractionJob, error) {
	return s.store.ListExtractionJobs(ctx, projectID)
}

// ListStuckJobs retrieves jobs still queued or extracting that were
// created more than age ago. There is no cancellation primitive, a
// stuck job is abandoned and retried as a brand new job.
func (s *IntakeService) ListStuckJobs(ctx context.Context, age time.Duration) ([]*model.ExtractionJob, error) {
	return s.store.ListStaleJobs(ctx, time.Now().Add(-age))
}

func (s *IntakeService) mirrorJobStatus(ctx context.Context, jobID, status string) {
	if s.statuses == nil {
		return
	}
	if err := s.statuses.SetJobStatus(ctx, jobID, status); err != nil {
		logrus.Warnf("caching job %s status: %v", jobID, err)
	}
}

func (s *IntakeService) mirrorFileStatus(ctx context.Context, fileID, status string) {
	if s.statuses == nil {
		return
	}
	if err := s.statuses.SetFileStatus(ctx, fileID, status); err != nil {
		logrus.Warnf("caching file %s status: %v", fileID, err)
	}
}

// parseSource classifies a locator as url or file and derives the
// display name shown in history entries.
func parseSource(source string) (kind, jobKind, name string, err error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return "", "", "", fmt.Errorf("%w: empty locator", ErrInvalidSource)
	}

	if strings.Contains(trimmed, "://") {
		u, perr := url.Parse(trimmed)
		if perr != nil || u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
			return "", "", "", fmt.Errorf("%w: %q", ErrInvalidSource, source)
		}

		name = path.Base(u.Path)
		if name == "." || name == "/" || name == "" {
			name = u.Host
		}
		return model.SourceKindURL, model.JobKindURLParse, name, nil
	}

	return model.SourceKindFile, model.JobKindFileParse, filepath.Base(trimmed), nil
}
