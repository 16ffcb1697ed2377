package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/repository"
	"github.com/kursadbilgin/number-console/internal/selection"
	"go.uber.org/zap"
)

// NumberPage is one loaded page of the number pool.
type NumberPage struct {
	Numbers  domain.Snapshot
	Total    int64
	Page     int
	PageSize int
}

type NumberService struct {
	numbers    repository.NumberRepository
	selections *selection.Registry
	logger     *zap.Logger
}

func NewNumberService(
	numbers repository.NumberRepository,
	selections *selection.Registry,
	logger *zap.Logger,
) (*NumberService, error) {
	if numbers == nil {
		return nil, fmt.Errorf("number repository is required")
	}
	if selections == nil {
		return nil, fmt.Errorf("selection registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NumberService{
		numbers:    numbers,
		selections: selections,
		logger:     logger,
	}, nil
}

// LoadPage lists a page of numbers and makes it the session's snapshot,
// which clears the session's selection.
func (s *NumberService) LoadPage(ctx context.Context, session string, params repository.ListParams) (*NumberPage, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, *params.Status)
	}
	params = params.Normalize()

	numbers, total, err := s.numbers.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list numbers: %w", err)
	}

	snapshot := domain.Snapshot(numbers)
	s.selections.Get(session).ReplaceSnapshot(snapshot)

	s.logger.Debug("number page loaded",
		zap.String("session", selection.NormalizeSession(session)),
		zap.Int("page", params.Page),
		zap.Int("count", len(snapshot)),
	)

	return &NumberPage{
		Numbers:  snapshot,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}, nil
}

func (s *NumberService) GetByID(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: number id is required", domain.ErrValidation)
	}
	return s.numbers.GetByID(ctx, id)
}
