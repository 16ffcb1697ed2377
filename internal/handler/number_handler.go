package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/repository"
	"github.com/kursadbilgin/number-console/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NumberService interface {
	LoadPage(ctx context.Context, session string, params repository.ListParams) (*service.NumberPage, error)
	GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error)
}

type NumberHandler struct {
	service NumberService
}

func NewNumberHandler(service NumberService) (*NumberHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("number service is required")
	}
	return &NumberHandler{service: service}, nil
}

func RegisterNumberRoutes(router fiber.Router, service NumberService) error {
	h, err := NewNumberHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/numbers", h.ListNumbers)
	v1.Get("/numbers/:id", h.GetNumber)

	return nil
}

type numberResponse struct {
	ID               string    `json:"id"`
	E164             string    `json:"e164"`
	Status           string    `json:"status"`
	AccountID        *string   `json:"accountId,omitempty"`
	Carrier          string    `json:"carrier,omitempty"`
	MonthlyCostCents int64     `json:"monthlyCostCents"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

type listNumbersResponse struct {
	Data []numberResponse `json:"data"`
	Meta listMeta         `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// ListNumbers loads a page into the caller's session. Loading a page
// replaces the session snapshot, so the selection starts empty.
func (h *NumberHandler) ListNumbers(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	page, err := h.service.LoadPage(c.UserContext(), sessionFrom(c), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]numberResponse, 0, len(page.Numbers))
	for i := range page.Numbers {
		data = append(data, toNumberResponse(&page.Numbers[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listNumbersResponse{
		Data: data,
		Meta: listMeta{
			Page:     page.Page,
			PageSize: page.PageSize,
			Total:    page.Total,
		},
	})
}

func (h *NumberHandler) GetNumber(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	number, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNumberResponse(number))
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseNumberStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	return params, nil
}

func toNumberResponse(n *domain.PhoneNumber) numberResponse {
	if n == nil {
		return numberResponse{}
	}

	return numberResponse{
		ID:               n.ID,
		E164:             n.E164,
		Status:           n.Status.String(),
		AccountID:        n.AccountID,
		Carrier:          n.Carrier,
		MonthlyCostCents: n.MonthlyCostCents,
		UpdatedAt:        n.UpdatedAt,
	}
}
