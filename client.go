package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/service"
)

// Client is a thin HTTP client for the intake API, used by the CLI and
// by external workers posting callbacks.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a client for the API at base, e.g.
// http://localhost:8040.
func NewClient(base, token string) *Client {
	return &Client{
		base:  base,
		token: token,
		http:  http.DefaultClient,
	}
}

// CreateProject creates a project together with its aggregate version.
func (c *Client) CreateProject(ctx context.Context, actorID, title string) (*model.Project, error) {
	var project model.Project
	err := c.post(ctx, "/v1/projects", map[string]string{"actor_id": actorID, "title": title}, &project)
	return &project, err
}

// CompleteIntake flips the intake_completed flag.
func (c *Client) CompleteIntake(ctx context.Context, projectID string, completed bool) error {
	return c.post(ctx, fmt.Sprintf("/v1/projects/%s/intake/complete", projectID), map[string]bool{"completed": completed}, nil)
}

// RegisterSource registers a file path or url for extraction.
func (c *Client) RegisterSource(ctx context.Context, projectID, actorID, source string) (*service.RegisterResult, error) {
	var result service.RegisterResult
	err := c.post(ctx, fmt.Sprintf("/v1/projects/%s/references", projectID), map[string]string{"actor_id": actorID, "source": source}, &result)
	return &result, err
}

// ListReferences lists the reference files of a project.
func (c *Client) ListReferences(ctx context.Context, projectID string) ([]*model.ReferenceFile, error) {
	var out struct {
		Files []*model.ReferenceFile `json:"files"`
	}
	err := c.get(ctx, fmt.Sprintf("/v1/projects/%s/references", projectID), &out)
	return out.Files, err
}

// ListJobs lists the extraction jobs of a project.
func (c *Client) ListJobs(ctx context.Context, projectID string) ([]*model.ExtractionJob, error) {
	var out struct {
		Jobs []*model.ExtractionJob `json:"jobs"`
	}
	err := c.get(ctx, fmt.Sprintf("/v1/projects/%s/jobs", projectID), &out)
	return out.Jobs, err
}

// ApplyResult posts a terminal extraction callback.
func (c *Client) ApplyResult(ctx context.Context, result *service.ExtractionResult) error {
	return c.post(ctx, "/v1/callbacks/extraction", result, nil)
}

// CreateVersion creates a new immutable version.
func (c *Client) CreateVersion(ctx context.Context, projectID, actorID, content, title, description string) (*model.Version, error) {
	var version model.Version
	err := c.post(ctx, fmt.Sprintf("/v1/projects/%s/versions", projectID), map[string]string{
		"actor_id":    actorID,
		"content":     content,
		"title":       title,
		"description": description,
	}, &version)
	return &version, err
}

// ListVersions lists versions, most recent number first.
func (c *Client) ListVersions(ctx context.Context, projectID string) ([]*model.Version, error) {
	var out struct {
		Versions []*model.Version `json:"versions"`
	}
	err := c.get(ctx, fmt.Sprintf("/v1/projects/%s/versions", projectID), &out)
	return out.Versions, err
}

// RestoreVersion restores a version as a new higher-numbered version.
func (c *Client) RestoreVersion(ctx context.Context, projectID, versionID, actorID string) (*model.Version, error) {
	var version model.Version
	err := c.post(ctx, fmt.Sprintf("/v1/projects/%s/versions/%s/restore", projectID, versionID), map[string]string{"actor_id": actorID}, &version)
	return &version, err
}

// DiffSpan is one rendered diff fragment.
type DiffSpan struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// Diff compares two stored versions.
func (c *Client) Diff(ctx context.Context, fromID, toID string) ([]DiffSpan, error) {
	var out struct {
		Spans []DiffSpan `json:"spans"`
	}
	err := c.get(ctx, fmt.Sprintf("/v1/diff?from=%s&to=%s", fromID, toID), &out)
	return out.Spans, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (%d): %s", res.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error: status %d", res.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(res.Body).Decode(out)
}
