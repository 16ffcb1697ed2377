package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/number-console/internal/batch"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/service"
)

type BatchService interface {
	Preview(ctx context.Context, session string, action domain.ActionKind) (*service.Preview, error)
	Start(ctx context.Context, session string, action domain.ActionKind, params domain.JobParams) (domain.BatchProgress, error)
	Progress(ctx context.Context, jobID string) (domain.BatchProgress, error)
}

type BatchHandler struct {
	service BatchService
}

func NewBatchHandler(service BatchService) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService) error {
	h, err := NewBatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/batches/preview", h.PreviewBatch)
	v1.Post("/batches", h.StartBatch)
	v1.Get("/batches/:jobId", h.GetBatch)

	return nil
}

type previewRequest struct {
	Action string `json:"action"`
}

type startBatchRequest struct {
	Action    string `json:"action"`
	AccountID string `json:"accountId"`
}

type previewResponse struct {
	Action     string   `json:"action"`
	Mode       string   `json:"mode"`
	Eligible   []string `json:"eligible"`
	Ineligible []string `json:"ineligible"`
}

type outcomeResponse struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type batchResponse struct {
	JobID       string                     `json:"jobId"`
	Action      string                     `json:"action"`
	Mode        string                     `json:"mode"`
	Status      string                     `json:"status"`
	Total       int                        `json:"total"`
	Completed   int                        `json:"completed"`
	CurrentItem string                     `json:"currentItem,omitempty"`
	Running     bool                       `json:"running"`
	Summary     domain.BatchSummary        `json:"summary"`
	Results     map[string]outcomeResponse `json:"results"`
	StartedAt   time.Time                  `json:"startedAt"`
	FinishedAt  *time.Time                 `json:"finishedAt,omitempty"`
}

func (h *BatchHandler) PreviewBatch(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	action, err := domain.ParseActionKindFromString(req.Action)
	if err != nil {
		return toHTTPError(err)
	}

	preview, err := h.service.Preview(c.UserContext(), sessionFrom(c), action)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(previewResponse{
		Action:     preview.Action.String(),
		Mode:       preview.Mode.String(),
		Eligible:   nonNil(preview.Eligible),
		Ineligible: nonNil(preview.Ineligible),
	})
}

// StartBatch answers 200 with the final result for jobs that finished within
// the request and 202 with the initial progress for jobs still running.
func (h *BatchHandler) StartBatch(c *fiber.Ctx) error {
	var req startBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	action, err := domain.ParseActionKindFromString(req.Action)
	if err != nil {
		return toHTTPError(err)
	}

	progress, err := h.service.Start(c.UserContext(), sessionFrom(c), action, domain.JobParams{
		AccountID: strings.TrimSpace(req.AccountID),
	})
	if err != nil {
		return toHTTPError(err)
	}

	status := fiber.StatusOK
	if progress.Running {
		status = fiber.StatusAccepted
		c.Location("/v1/batches/" + progress.JobID)
	}
	return c.Status(status).JSON(toBatchResponse(progress))
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	progress, err := h.service.Progress(c.UserContext(), strings.TrimSpace(c.Params("jobId")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(progress))
}

func toBatchResponse(p domain.BatchProgress) batchResponse {
	summary := batch.Summarize(p)
	status := domain.BatchStatusRunning
	if !p.Running {
		status = summary.Status()
	}

	results := make(map[string]outcomeResponse, len(p.Results))
	for id, outcome := range p.Results {
		results[id] = outcomeResponse{
			Kind:    string(outcome.Kind),
			Payload: outcome.Payload,
			Reason:  outcome.Reason,
		}
	}

	return batchResponse{
		JobID:       p.JobID,
		Action:      p.Action.String(),
		Mode:        p.Mode.String(),
		Status:      status.String(),
		Total:       p.Total,
		Completed:   p.Completed,
		CurrentItem: p.CurrentItem,
		Running:     p.Running,
		Summary:     summary,
		Results:     results,
		StartedAt:   p.StartedAt,
		FinishedAt:  p.FinishedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
