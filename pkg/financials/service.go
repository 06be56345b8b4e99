package financials

import (
	"context"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/internal/utils"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const projectPhaseConcurrency = 4

type CommitmentCalculator interface {
	CommittedCost(ctx context.Context, phaseId int) (decimal.Decimal, error)
	EstimatedCost(ctx context.Context, phaseId int) (decimal.Decimal, error)
}

type Service interface {
	// GetPhaseFinancialSummary always aggregates from the cost collections.
	GetPhaseFinancialSummary(ctx context.Context, phaseId int) (Summary, error)
	// GetCachedPhaseFinancials returns the snapshot stored by the last recalculation.
	// It is not authoritative.
	GetCachedPhaseFinancials(ctx context.Context, phaseId int) (CachedFinancials, error)
	GetProjectFinancialSummary(ctx context.Context, projectId int) (ProjectSummary, error)
	Aggregate(ctx context.Context, p phase.Phase) (Aggregate, error)
}

// Aggregate is one complete read of a phase's cost collections.
type Aggregate struct {
	Phase                phase.Phase
	Inputs               Inputs
	Summary              Summary
	Labour               cost.RoleBreakdown
	ProfessionalServices cost.RoleBreakdown
}

// Snapshot converts the aggregate into the phase's cached fields.
func (a Aggregate) Snapshot() phase.FinancialSnapshot {
	s := a.Summary
	return phase.FinancialSnapshot{
		ActualSpending: phase.ActualSpending{
			Total:      s.ActualTotal,
			ByCategory: s.ActualByCategory,
		},
		FinancialStates: phase.FinancialStates{
			Budgeted:  s.BudgetTotal,
			Estimated: s.EstimatedTotal,
			Committed: s.CommittedTotal,
			Actual:    s.ActualTotal,
			Remaining: s.Remaining,
		},
		ProfessionalServices: phase.ProfessionalServicesSnapshot{
			Count:      a.ProfessionalServices.Count,
			TotalFees:  a.ProfessionalServices.Total,
			FeesByRole: a.ProfessionalServices.ByRole,
		},
		CategoryBreakdown: s.CategoryBreakdown,
		RecalculatedAt:    s.CalculatedAt,
	}
}

type CachedFinancials struct {
	PhaseId              int
	Budget               decimal.Decimal
	FinancialStates      *phase.FinancialStates
	ActualSpending       phase.ActualSpending
	ProfessionalServices *phase.ProfessionalServicesSnapshot
	Version              int
	LastRecalculatedAt   *time.Time
}

type ProjectSummary struct {
	ProjectId int
	Phases    []Summary
	Totals    Summary
}

type ServiceImpl struct {
	phases      phase.Repository
	costs       cost.Reader
	commitments CommitmentCalculator
	clock       utils.Clock
}

func NewService(phases phase.Repository, costs cost.Reader, commitments CommitmentCalculator, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{phases: phases, costs: costs, commitments: commitments, clock: clock}
}

func (s *ServiceImpl) GetPhaseFinancialSummary(ctx context.Context, phaseId int) (Summary, error) {
	p, err := s.phases.GetPhase(ctx, phaseId)
	if err != nil {
		return Summary{}, err
	}
	agg, err := s.Aggregate(ctx, p)
	if err != nil {
		return Summary{}, err
	}
	return agg.Summary, nil
}

func (s *ServiceImpl) GetCachedPhaseFinancials(ctx context.Context, phaseId int) (CachedFinancials, error) {
	p, err := s.phases.GetPhase(ctx, phaseId)
	if err != nil {
		return CachedFinancials{}, err
	}
	return CachedFinancials{
		PhaseId:              p.Id,
		Budget:               p.BudgetAllocation.EffectiveTotal(),
		FinancialStates:      p.FinancialStates,
		ActualSpending:       p.ActualSpending,
		ProfessionalServices: p.ProfessionalServices,
		Version:              p.Version,
		LastRecalculatedAt:   p.LastRecalculatedAt,
	}, nil
}

func (s *ServiceImpl) GetProjectFinancialSummary(ctx context.Context, projectId int) (ProjectSummary, error) {
	phases, err := s.phases.ListByProject(ctx, projectId)
	if err != nil {
		return ProjectSummary{}, err
	}

	aggregates := make([]Aggregate, len(phases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectPhaseConcurrency)
	for i, p := range phases {
		g.Go(func() error {
			agg, err := s.Aggregate(gctx, p)
			if err != nil {
				return err
			}
			aggregates[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ProjectSummary{}, err
	}

	result := ProjectSummary{ProjectId: projectId, Phases: make([]Summary, 0, len(aggregates))}
	inputs := make([]Inputs, 0, len(aggregates))
	for _, agg := range aggregates {
		result.Phases = append(result.Phases, agg.Summary)
		inputs = append(inputs, agg.Inputs)
	}
	result.Totals = Assemble(mergeInputs(inputs))
	result.Totals.CalculatedAt = s.clock.Now()
	return result, nil
}

// Aggregate reads every cost category, committed and estimated cost for the phase
// concurrently. Any failed read fails the whole aggregate.
//
// Labour and professional services tallies are taken from the role breakdown read,
// so the fee snapshot and the actual spend always agree.
func (s *ServiceImpl) Aggregate(ctx context.Context, p phase.Phase) (Aggregate, error) {
	n := len(cost.Categories)
	tallies := make([]cost.Tally, n)
	monthly := make([][]cost.MonthlyAmount, n)
	breakdowns := make([]cost.RoleBreakdown, n)
	var committed, estimated decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cost.Categories {
		g.Go(func() error {
			if c.HasRoleBreakdown() {
				b, err := s.costs.RoleBreakdown(gctx, p.Id, c)
				if err != nil {
					return apperrors.Aggregation(string(c), err)
				}
				breakdowns[i] = b
				tallies[i] = b.Tally()
				return nil
			}
			t, err := s.costs.Tally(gctx, p.Id, c)
			if err != nil {
				return apperrors.Aggregation(string(c), err)
			}
			tallies[i] = t
			return nil
		})
		g.Go(func() error {
			m, err := s.costs.MonthlyTotals(gctx, p.Id, c)
			if err != nil {
				return apperrors.Aggregation(string(c)+" trends", err)
			}
			monthly[i] = m
			return nil
		})
	}
	g.Go(func() error {
		v, err := s.commitments.CommittedCost(gctx, p.Id)
		if err != nil {
			return apperrors.Aggregation("committed cost", err)
		}
		committed = v
		return nil
	})
	g.Go(func() error {
		v, err := s.commitments.EstimatedCost(gctx, p.Id)
		if err != nil {
			return apperrors.Aggregation("estimated cost", err)
		}
		estimated = v
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Errorf("failed to aggregate phase %d: %v", p.Id, err)
		return Aggregate{}, err
	}

	in := Inputs{
		Budget:    p.BudgetAllocation.EffectiveTotal(),
		Tallies:   tallies,
		Committed: committed,
		Estimated: estimated,
		Monthly:   make(map[cost.Category][]cost.MonthlyAmount, n),
	}
	agg := Aggregate{Phase: p, Inputs: in}
	for i, c := range cost.Categories {
		in.Monthly[c] = monthly[i]
		switch c {
		case cost.Labour:
			agg.Labour = breakdowns[i]
		case cost.ProfessionalServices:
			agg.ProfessionalServices = breakdowns[i]
		}
	}

	agg.Summary = Assemble(in)
	agg.Summary.PhaseId = p.Id
	agg.Summary.CalculatedAt = s.clock.Now()
	log.Debugf("phase %d aggregated: actual=%s committed=%s estimated=%s",
		p.Id, agg.Summary.ActualTotal, committed, estimated)
	return agg, nil
}
