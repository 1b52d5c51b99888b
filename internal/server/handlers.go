package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/emrgen/intake/internal/diff"
	"github.com/emrgen/intake/internal/service"
	"github.com/emrgen/intake/internal/store"
	"github.com/google/uuid"
)

// Handlers exposes the intake and version services over JSON.
type Handlers struct {
	intake      *service.IntakeService
	versions    *service.VersionService
	stuckJobAge time.Duration
}

func NewHandlers(intake *service.IntakeService, versions *service.VersionService, stuckJobAge time.Duration) *Handlers {
	return &Handlers{
		intake:      intake,
		versions:    versions,
		stuckJobAge: stuckJobAge,
	}
}

// Register attaches all routes to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/projects", h.createProject)
	mux.HandleFunc("POST /v1/projects/{projectID}/intake/complete", h.completeIntake)
	mux.HandleFunc("POST /v1/projects/{projectID}/references", h.registerSource)
	mux.HandleFunc("GET /v1/projects/{projectID}/references", h.listReferences)
	mux.HandleFunc("GET /v1/projects/{projectID}/jobs", h.listJobs)
	mux.HandleFunc("GET /v1/jobs/{jobID}", h.getJob)
	mux.HandleFunc("GET /v1/jobs", h.listStuckJobs)
	mux.HandleFunc("POST /v1/callbacks/extraction", h.extractionCallback)
	mux.HandleFunc("POST /v1/projects/{projectID}/versions", h.createVersion)
	mux.HandleFunc("GET /v1/projects/{projectID}/versions", h.listVersions)
	mux.HandleFunc("POST /v1/projects/{projectID}/versions/{versionID}/restore", h.restoreVersion)
	mux.HandleFunc("POST /v1/projects/{projectID}/aggregate/append", h.appendToAggregate)
	mux.HandleFunc("GET /v1/diff", h.diffVersions)
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID string `json:"actor_id"`
		Title   string `json:"title"`
	}
	if !decode(w, r, &req) {
		return
	}

	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	project, err := h.intake.CreateProject(r.Context(), actorID, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *Handlers) completeIntake(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	var req struct {
		Completed bool `json:"completed"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := h.intake.CompleteIntake(r.Context(), projectID, req.Completed); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"project_id": projectID, "intake_completed": req.Completed})
}

func (h *Handlers) registerSource(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	var req struct {
		ActorID string `json:"actor_id"`
		Source  string `json:"source"`
	}
	if !decode(w, r, &req) {
		return
	}

	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.intake.RegisterSource(r.Context(), projectID, actorID, req.Source)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) listReferences(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	files, err := h.intake.ListReferenceFiles(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": files, "total": len(files)})
}

func (h *Handlers) listJobs(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	jobs, err := h.intake.ListJobs(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "total": len(jobs)})
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathID(w, r, "jobID")
	if !ok {
		return
	}

	job, err := h.intake.GetJob(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// listStuckJobs answers GET /v1/jobs?stuck_for=10m with jobs that never
// reached a terminal callback.
func (h *Handlers) listStuckJobs(w http.ResponseWriter, r *http.Request) {
	age := h.stuckJobAge
	if v := r.URL.Query().Get("stuck_for"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		age = parsed
	}

	jobs, err := h.intake.ListStuckJobs(r.Context(), age)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "total": len(jobs)})
}

// extractionCallback is the at-least-once worker callback endpoint.
func (h *Handlers) extractionCallback(w http.ResponseWriter, r *http.Request) {
	var result service.ExtractionResult
	if !decode(w, r, &result) {
		return
	}

	if err := h.intake.ApplyResult(r.Context(), &result); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"job_id": result.JobID})
}

func (h *Handlers) createVersion(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	var req struct {
		ActorID     string `json:"actor_id"`
		Content     string `json:"content"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if !decode(w, r, &req) {
		return
	}

	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	version, err := h.versions.Create(r.Context(), projectID, actorID, req.Content, req.Title, req.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, version)
}

func (h *Handlers) listVersions(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	versions, err := h.versions.List(r.Context(), projectID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"versions": versions, "total": len(versions)})
}

func (h *Handlers) restoreVersion(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "versionID")
	if !ok {
		return
	}

	var req struct {
		ActorID string `json:"actor_id"`
	}
	if !decode(w, r, &req) {
		return
	}

	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	version, err := h.versions.Restore(r.Context(), projectID, versionID, actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// no client reload: pollers pick up the new version on their next cycle
	writeJSON(w, http.StatusCreated, version)
}

// appendToAggregate is the manual augmentation trigger for results held
// while intake was still open.
func (h *Handlers) appendToAggregate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectID")
	if !ok {
		return
	}

	var req struct {
		Content    string `json:"content"`
		SourceName string `json:"source_name"`
	}
	if !decode(w, r, &req) {
		return
	}

	aggregateID, err := h.versions.AppendToAggregate(r.Context(), projectID, req.Content, req.SourceName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"version_id": aggregateID})
}

func (h *Handlers) diffVersions(w http.ResponseWriter, r *http.Request) {
	fromID, err := uuid.Parse(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	toID, err := uuid.Parse(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	from, err := h.versions.Get(r.Context(), fromID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	to, err := h.versions.Get(r.Context(), toID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	stream := diff.Diff(from.Content, to.Content)
	spans := make([]map[string]string, 0, stream.Len())
	for {
		span, ok := stream.Next()
		if !ok {
			break
		}
		spans = append(spans, map[string]string{"op": span.Op.String(), "text": span.Text})
	}

	writeJSON(w, http.StatusOK, map[string]any{"spans": spans})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, service.ErrInvalidSource):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrAggregateNotFound),
		errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrReferenceFileNotFound),
		errors.Is(err, store.ErrExtractionJobNotFound),
		errors.Is(err, store.ErrVersionNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
