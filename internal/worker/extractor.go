package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/emrgen/intake/internal/model"
	"github.com/emrgen/intake/internal/queue"
	"github.com/emrgen/intake/internal/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxFetchBytes = 8 << 20

// Extractor is a development stand-in for the external extraction
// worker. It drains the dispatch queue, pulls plain text from the
// source and posts the terminal callback through the intake service.
// The production worker lives outside this repo and only shares the
// queue payload and callback shapes.
type Extractor struct {
	jobs   queue.JobQueue
	intake *service.IntakeService
	client *http.Client
}

func NewExtractor(jobs queue.JobQueue, intake *service.IntakeService) *Extractor {
	return &Extractor{
		jobs:   jobs,
		intake: intake,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run consumes dispatched jobs until ctx is done.
func (e *Extractor) Run(ctx context.Context) error {
	payloads, err := e.jobs.Subscribe(ctx)
	if err != nil {
		return err
	}

	logrus.Info("extraction worker started")
	for payload := range payloads {
		e.extract(ctx, payload)
	}
	logrus.Info("extraction worker stopped")

	return nil
}

func (e *Extractor) extract(ctx context.Context, payload *queue.JobPayload) {
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		logrus.Errorf("dispatched payload carries invalid job id %q: %v", payload.JobID, err)
		return
	}

	if err := e.intake.MarkExtracting(ctx, jobID); err != nil {
		logrus.Warnf("marking job %s extracting: %v", jobID, err)
	}

	text, err := e.fetch(ctx, payload)
	result := &service.ExtractionResult{
		JobID:       payload.JobID,
		RawResponse: fmt.Sprintf(`{"worker":"local","kind":%q}`, payload.Kind),
	}

	if err != nil {
		result.Status = model.JobStatusFailed
		result.ErrorMessage = err.Error()
	} else {
		result.Status = model.JobStatusSucceeded
		result.Text = text
		result.Chunks = chunk(text)
	}

	if err := e.intake.ApplyResult(ctx, result); err != nil {
		logrus.Errorf("applying result for job %s: %v", jobID, err)
	}
}

func (e *Extractor) fetch(ctx context.Context, payload *queue.JobPayload) (string, error) {
	switch payload.Kind {
	case model.JobKindURLParse:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.Source, nil)
		if err != nil {
			return "", err
		}

		res, err := e.client.Do(req)
		if err != nil {
			return "", err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetching %s: status %d", payload.Source, res.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(res.Body, maxFetchBytes))
		if err != nil {
			return "", err
		}
		return string(data), nil

	case model.JobKindFileParse:
		data, err := os.ReadFile(payload.Source)
		if err != nil {
			return "", err
		}
		return string(data), nil

	default:
		return "", fmt.Errorf("unknown job kind %q", payload.Kind)
	}
}

// chunk splits extracted text on blank lines, the coarse paragraph
// boundaries downstream consumers expect.
func chunk(text string) []string {
	parts := strings.Split(text, "\n\n")
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}
