package allocation

import (
	"context"
	"fmt"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/buildledger/buildledger/pkg/floor"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Suggestion struct {
	FloorId         int
	FloorName       string
	Weight          decimal.Decimal
	SuggestedBudget decimal.Decimal
	// Breakdown splits SuggestedBudget across categories in proportion to the phase budget.
	Breakdown floor.Allocation
	Current   *floor.Allocation
}

type SuggestionResult struct {
	PhaseId     int
	Strategy    Strategy
	PhaseBudget decimal.Decimal
	Suggestions []Suggestion
	// Unallocated is the part of the budget no suggestion covers.
	Unallocated decimal.Decimal
}

type Service interface {
	SuggestFloorAllocations(ctx context.Context, phaseId int, strategy Strategy) (SuggestionResult, error)
	// ApplyFloorAllocations validates all allocations first and then writes them atomically.
	ApplyFloorAllocations(ctx context.Context, phaseId int, allocations []floor.FloorAllocation) ([]floor.Floor, error)
}

type ServiceImpl struct {
	phases phase.Repository
	floors floor.Repository
	scale  int32
}

func NewService(phases phase.Repository, floors floor.Repository, currencyScale int32) *ServiceImpl {
	return &ServiceImpl{phases: phases, floors: floors, scale: currencyScale}
}

func (s *ServiceImpl) SuggestFloorAllocations(ctx context.Context, phaseId int, strategy Strategy) (SuggestionResult, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return SuggestionResult{}, err
	}
	p, err := s.phases.GetPhase(ctx, phaseId)
	if err != nil {
		return SuggestionResult{}, err
	}
	floors, err := s.floors.ListForPhase(ctx, p.ProjectId, p.Id)
	if err != nil {
		return SuggestionResult{}, fmt.Errorf("failed to list floors of phase %d: %w", phaseId, err)
	}

	budget := p.BudgetAllocation.EffectiveTotal()
	result := SuggestionResult{
		PhaseId:     p.Id,
		Strategy:    strategy,
		PhaseBudget: budget,
		Suggestions: make([]Suggestion, 0, len(floors)),
		Unallocated: budget,
	}
	if len(floors) == 0 {
		return result, nil
	}

	var weights, amounts []decimal.Decimal
	switch strategy {
	case Even:
		amounts = SplitEven(budget, len(floors), s.scale)
		weights = make([]decimal.Decimal, len(floors))
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
	case Weighted:
		weights = FloorWeights(floors)
		amounts, err = SplitWeighted(budget, weights, s.scale)
		if err != nil {
			return SuggestionResult{}, err
		}
	case Manual:
		weights = make([]decimal.Decimal, len(floors))
		amounts = make([]decimal.Decimal, len(floors))
		for i, f := range floors {
			if f.Allocation != nil {
				amounts[i] = f.Allocation.Total
			}
		}
	}

	for i, f := range floors {
		suggestion := Suggestion{
			FloorId:         f.Id,
			FloorName:       f.Name,
			Weight:          weights[i],
			SuggestedBudget: amounts[i],
			Current:         f.Allocation,
		}
		if strategy == Manual && f.Allocation != nil {
			suggestion.Breakdown = *f.Allocation
		} else {
			suggestion.Breakdown = s.splitByCategory(amounts[i], p.BudgetAllocation)
		}
		result.Suggestions = append(result.Suggestions, suggestion)
		result.Unallocated = result.Unallocated.Sub(amounts[i])
	}
	log.Debugf("phase %d: %s suggestions leave %s unallocated", phaseId, strategy, result.Unallocated)
	return result, nil
}

// splitByCategory mirrors the phase's category budget for the four categories
// a floor allocation tracks.
func (s *ServiceImpl) splitByCategory(total decimal.Decimal, budget phase.BudgetAllocation) floor.Allocation {
	a := floor.Allocation{Total: total}
	weights := []decimal.Decimal{
		budget.ByCategory[cost.Materials],
		budget.ByCategory[cost.Labour],
		budget.ByCategory[cost.Equipment],
		budget.ByCategory[cost.Subcontractors],
	}
	parts, err := SplitWeighted(total, weights, s.scale)
	if err != nil {
		return a
	}
	a.Materials, a.Labour, a.Equipment, a.Subcontractors = parts[0], parts[1], parts[2], parts[3]
	return a
}

func (s *ServiceImpl) ApplyFloorAllocations(ctx context.Context, phaseId int, allocations []floor.FloorAllocation) ([]floor.Floor, error) {
	p, err := s.phases.GetPhase(ctx, phaseId)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, apperrors.Validation("no floor allocations submitted")
	}

	floors, err := s.floors.ListForPhase(ctx, p.ProjectId, p.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to list floors of phase %d: %w", phaseId, err)
	}
	known := make(map[int]bool, len(floors))
	for _, f := range floors {
		known[f.Id] = true
	}

	seen := make(map[int]bool, len(allocations))
	submitted := decimal.Zero
	for _, a := range allocations {
		if !known[a.FloorId] {
			return nil, fmt.Errorf("%w: %d is not a floor of project %d", floor.ErrFloorNotFound, a.FloorId, p.ProjectId)
		}
		if seen[a.FloorId] {
			return nil, apperrors.Validation("floor %d submitted more than once", a.FloorId)
		}
		seen[a.FloorId] = true
		if err := validateAmounts(a); err != nil {
			return nil, err
		}
		submitted = submitted.Add(a.Allocation.Total)
	}

	budget := p.BudgetAllocation.EffectiveTotal()
	if submitted.GreaterThan(budget) {
		return nil, fmt.Errorf("%w: %s submitted against a budget of %s", floor.ErrAllocationExceedsBudget, submitted, budget)
	}

	updated, err := s.floors.ReplaceAllocations(ctx, p.Id, budget, allocations)
	if err != nil {
		log.Errorf("failed to apply floor allocations to phase %d: %v", phaseId, err)
		return nil, err
	}
	log.Infof("phase %d: %d floor allocations applied, %s of %s allocated", phaseId, len(allocations), submitted, budget)
	return updated, nil
}

func validateAmounts(a floor.FloorAllocation) error {
	amounts := []decimal.Decimal{a.Allocation.Total, a.Allocation.Materials, a.Allocation.Labour, a.Allocation.Equipment, a.Allocation.Subcontractors}
	for _, v := range amounts {
		if v.IsNegative() {
			return apperrors.Validation("floor %d has a negative amount %s", a.FloorId, v)
		}
	}
	if a.Allocation.SubTotal().GreaterThan(a.Allocation.Total) {
		return apperrors.Validation("floor %d category amounts %s exceed its total %s", a.FloorId, a.Allocation.SubTotal(), a.Allocation.Total)
	}
	return nil
}
