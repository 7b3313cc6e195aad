package targets

import (
	"context"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// Service handles target-allocation reconciliation
type Service struct {
	Portfolio domain.PortfolioRepository
}

// NewService creates a new targets Service instance
func NewService(portfolio domain.PortfolioRepository) *Service {
	return &Service{Portfolio: portfolio}
}

// Apply validates the mapping and copies it onto asset and cash target
// percentages, keeping the active strategy's stored map in sync.
// Logic:
//  1. Reject with a ValidationError if the values do not sum to 100 +-0.01
//  2. "cash" sets the cash target; known asset ids set the asset target;
//     unknown ids are silently skipped (lenient-merge policy, not an error)
//  3. If a strategy is active, its stored map is overwritten with the exact
//     input mapping
//
// All writes land in one transaction via the portfolio repository.
func (s *Service) Apply(ctx context.Context, targets domain.TargetMap) error {
	if err := targets.Validate(); err != nil {
		return err
	}
	return s.Portfolio.ApplyTargets(ctx, targets, true)
}
