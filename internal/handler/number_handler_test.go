package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/repository"
	"github.com/kursadbilgin/number-console/internal/service"
)

type stubNumberService struct {
	loadPageFn func(ctx context.Context, session string, params repository.ListParams) (*service.NumberPage, error)
	getByIDFn  func(ctx context.Context, id string) (*domain.PhoneNumber, error)
}

func (s *stubNumberService) LoadPage(
	ctx context.Context,
	session string,
	params repository.ListParams,
) (*service.NumberPage, error) {
	if s.loadPageFn != nil {
		return s.loadPageFn(ctx, session, params)
	}
	return &service.NumberPage{Page: params.Page, PageSize: params.PageSize}, nil
}

func (s *stubNumberService) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func newNumberTestApp(t *testing.T, svc NumberService) *fiber.App {
	t.Helper()
	return newTestApp(t, func(app *fiber.App) error {
		return RegisterNumberRoutes(app, svc)
	})
}

func TestNumberIntegration_ListNumbersPassesFiltersAndSession(t *testing.T) {
	t.Parallel()

	account := "acct-7"
	svc := &stubNumberService{
		loadPageFn: func(ctx context.Context, session string, params repository.ListParams) (*service.NumberPage, error) {
			if session != "ops-1" {
				t.Errorf("session = %q, want ops-1", session)
			}
			if params.Page != 2 || params.PageSize != 10 {
				t.Errorf("paging = %d/%d, want 2/10", params.Page, params.PageSize)
			}
			if params.Status == nil || *params.Status != domain.NumberStatusAssigned {
				t.Errorf("status filter = %v, want assigned", params.Status)
			}
			return &service.NumberPage{
				Numbers: domain.Snapshot{
					{ID: "n1", E164: "+15550001", Status: domain.NumberStatusAssigned, AccountID: &account},
				},
				Total:    11,
				Page:     params.Page,
				PageSize: params.PageSize,
			}, nil
		},
	}

	app := newNumberTestApp(t, svc)

	resp, body := performSessionRequest(t, app, http.MethodGet, "/v1/numbers?page=2&pageSize=10&status=ASSIGNED", "", "ops-1")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
		Meta listMeta         `json:"meta"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Meta.Total != 11 || parsed.Meta.Page != 2 || parsed.Meta.PageSize != 10 {
		t.Fatalf("meta = %+v, want total=11 page=2 pageSize=10", parsed.Meta)
	}
	if len(parsed.Data) != 1 || parsed.Data[0]["accountId"] != "acct-7" {
		t.Fatalf("data = %v, want one number owned by acct-7", parsed.Data)
	}
}

func TestNumberIntegration_ListNumbersRejectsBadQuery(t *testing.T) {
	t.Parallel()

	app := newNumberTestApp(t, &stubNumberService{})

	testCases := []struct {
		name string
		path string
	}{
		{name: "page below one", path: "/v1/numbers?page=0"},
		{name: "page size too large", path: "/v1/numbers?pageSize=101"},
		{name: "unknown status", path: "/v1/numbers?status=ported"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, body := performRequest(t, app, http.MethodGet, tc.path, "")
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body=%s", resp.StatusCode, string(body))
			}
		})
	}
}

func TestNumberIntegration_GetNumber(t *testing.T) {
	t.Parallel()

	svc := &stubNumberService{
		getByIDFn: func(ctx context.Context, id string) (*domain.PhoneNumber, error) {
			switch id {
			case "n-found":
				return &domain.PhoneNumber{ID: id, E164: "+15550002", Status: domain.NumberStatusAvailable}, nil
			case "n-broken":
				return nil, errors.New("connection reset")
			}
			return nil, domain.ErrNotFound
		},
	}

	app := newNumberTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/numbers/n-found", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/numbers/n-missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	resp, body := performRequest(t, app, http.MethodGet, "/v1/numbers/n-broken", "")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var parsed map[string]string
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["error"] != "internal server error" {
		t.Fatalf("error = %q, internal details must not leak", parsed["error"])
	}
}
