package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/selection"
)

type SelectionHandler struct {
	selections *selection.Registry
}

func NewSelectionHandler(selections *selection.Registry) (*SelectionHandler, error) {
	if selections == nil {
		return nil, fmt.Errorf("selection registry is required")
	}
	return &SelectionHandler{selections: selections}, nil
}

func RegisterSelectionRoutes(router fiber.Router, selections *selection.Registry) error {
	h, err := NewSelectionHandler(selections)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/selection", h.GetSelection)
	v1.Post("/selection/items", h.AddItems)
	v1.Delete("/selection/items/:id", h.RemoveItem)
	v1.Post("/selection/all", h.SelectAll)
	v1.Delete("/selection", h.ClearSelection)

	return nil
}

type addItemsRequest struct {
	IDs []string `json:"ids"`
}

type selectionResponse struct {
	Session     string   `json:"session"`
	Selected    []string `json:"selected"`
	Count       int      `json:"count"`
	LoadedCount int      `json:"loadedCount"`
}

func (h *SelectionHandler) GetSelection(c *fiber.Ctx) error {
	return h.respond(c)
}

func (h *SelectionHandler) AddItems(c *fiber.Ctx) error {
	var req addItemsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return toHTTPError(fmt.Errorf("%w: ids is required", domain.ErrValidation))
	}

	if err := h.selections.Get(sessionFrom(c)).AddAll(req.IDs); err != nil {
		return toHTTPError(err)
	}
	return h.respond(c)
}

func (h *SelectionHandler) RemoveItem(c *fiber.Ctx) error {
	h.selections.Get(sessionFrom(c)).Remove(strings.TrimSpace(c.Params("id")))
	return h.respond(c)
}

// SelectAll selects every number of the loaded page.
func (h *SelectionHandler) SelectAll(c *fiber.Ctx) error {
	store := h.selections.Get(sessionFrom(c))
	store.SelectAll(store.Snapshot())
	return h.respond(c)
}

func (h *SelectionHandler) ClearSelection(c *fiber.Ctx) error {
	h.selections.Get(sessionFrom(c)).Clear()
	return h.respond(c)
}

func (h *SelectionHandler) respond(c *fiber.Ctx) error {
	session := sessionFrom(c)
	store := h.selections.Get(session)
	selected := store.Current()

	return c.Status(fiber.StatusOK).JSON(selectionResponse{
		Session:     session,
		Selected:    selected,
		Count:       len(selected),
		LoadedCount: len(store.Snapshot()),
	})
}
