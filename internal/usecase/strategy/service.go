package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// historyLimit caps the activation log returned to callers
const historyLimit = 50

// UpdateInput holds the updatable fields of a strategy (all optional)
type UpdateInput struct {
	Name        *string
	Description *string
	Targets     domain.TargetMap // nil when not supplied
}

// Service handles the strategy lifecycle: create, update, activate, delete
type Service struct {
	Strategies domain.StrategyRepository
}

// NewService creates a new strategy Service instance
func NewService(strategies domain.StrategyRepository) *Service {
	return &Service{Strategies: strategies}
}

// List returns all strategies ordered by name
func (s *Service) List(ctx context.Context) ([]*domain.Strategy, error) {
	return s.Strategies.List(ctx)
}

// Active returns the currently active strategy.
// Returns a NotFoundError when no strategy is active.
func (s *Service) Active(ctx context.Context) (*domain.Strategy, error) {
	strat, err := s.Strategies.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, domain.NewNotFoundError("strategy", "active")
	}
	return strat, nil
}

// Create creates a new inactive strategy.
// The target map must sum to 100 +-0.01 and the name must be unique.
func (s *Service) Create(ctx context.Context, name, description string, targets domain.TargetMap) (*domain.Strategy, error) {
	strat := &domain.Strategy{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Targets:     targets,
		CreatedAt:   time.Now().UTC(),
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.Strategies.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflictError("a strategy named %q already exists", name)
	}

	if err := s.Strategies.Create(ctx, strat); err != nil {
		return nil, err
	}
	return strat, nil
}

// Update changes name, description or target map of an existing strategy.
// A supplied target map is revalidated for the 100% sum. When the strategy
// is currently active, the new targets are applied to live assets and cash
// in the same transaction (without a second sum check).
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*domain.Strategy, error) {
	strat, err := s.Strategies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != strat.Name {
		existing, err := s.Strategies.GetByName(ctx, *input.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, domain.NewConflictError("a strategy named %q already exists", *input.Name)
		}
		strat.Name = *input.Name
	}

	if input.Description != nil {
		strat.Description = *input.Description
	}

	applyTargets := false
	if input.Targets != nil {
		if err := input.Targets.Validate(); err != nil {
			return nil, err
		}
		strat.Targets = input.Targets
		applyTargets = strat.IsActive
	}

	if err := s.Strategies.Update(ctx, strat, applyTargets); err != nil {
		return nil, err
	}
	return strat, nil
}

// Activate makes the strategy the single active one: every other strategy is
// deactivated, the stored target map is copied onto live assets and cash, and
// a history entry capturing the strategy's current name is appended. The
// whole transition commits as one unit.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*domain.Strategy, error) {
	return s.Strategies.Activate(ctx, id, time.Now().UTC())
}

// Delete removes a strategy. The active strategy cannot be deleted; activate
// a different one first. History entries keep the deleted strategy's name.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	strat, err := s.Strategies.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if strat.IsActive {
		return domain.NewConflictError("cannot delete the active strategy")
	}
	return s.Strategies.Delete(ctx, id)
}

// History returns activation log entries, newest first
func (s *Service) History(ctx context.Context) ([]*domain.StrategyHistory, error) {
	return s.Strategies.History(ctx, historyLimit)
}
