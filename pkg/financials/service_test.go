package financials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/internal/utils"
	"github.com/buildledger/buildledger/pkg/commitment"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	phases      *phase.RepositoryStub
	costs       *cost.ReaderStub
	commitments *commitment.RepositoryStub
	service     *ServiceImpl
}

func setupService() fixture {
	f := fixture{
		phases:      phase.NewRepositoryStub(),
		costs:       cost.NewReaderStub(),
		commitments: commitment.NewRepositoryStub(),
	}
	f.service = NewService(f.phases, f.costs, commitment.NewCalculator(f.commitments), utils.NewFixedClock(now))
	return f
}

func budget(total string) phase.BudgetAllocation {
	return phase.BudgetAllocation{Total: dec(total), ByCategory: map[cost.Category]decimal.Decimal{}}
}

func TestServiceImpl_GetPhaseFinancialSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("should aggregate the reference phase", func(t *testing.T) {
		// given
		f := setupService()
		p := f.phases.AddPhase(phase.Phase{ProjectId: 1, Name: "Structure", BudgetAllocation: budget("100000")})
		f.costs.Add(
			cost.Record{PhaseId: p.Id, Category: cost.Materials, Status: "approved", Amount: dec("30000")},
			cost.Record{PhaseId: p.Id, Category: cost.Expenses, Status: "APPROVED", Amount: dec("10000")},
		)
		f.commitments.AddPurchaseOrder(commitment.PurchaseOrder{PhaseId: p.Id, TotalAmount: dec("20000"), Status: commitment.POSent})

		// when
		s, err := f.service.GetPhaseFinancialSummary(ctx, p.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, p.Id, s.PhaseId)
		assert.Equal(t, now, s.CalculatedAt)
		assertAmount(t, "40000", s.ActualTotal)
		assertAmount(t, "20000", s.CommittedTotal)
		assertAmount(t, "40000", s.Remaining)
		assertAmount(t, "-60000", s.Variance)
		assertAmount(t, "40", s.UtilizationPercentage)
	})

	t.Run("should include estimates and use the category budget when no total is set", func(t *testing.T) {
		// given
		f := setupService()
		p := f.phases.AddPhase(phase.Phase{ProjectId: 1, BudgetAllocation: phase.BudgetAllocation{
			ByCategory: map[cost.Category]decimal.Decimal{cost.Materials: dec("800"), cost.Labour: dec("200")},
		}})
		estimate := dec("150")
		f.commitments.AddMaterialRequest(commitment.MaterialRequest{PhaseId: p.Id, EstimatedCost: &estimate, Status: commitment.MRRequested})

		// when
		s, err := f.service.GetPhaseFinancialSummary(ctx, p.Id)

		// then
		require.NoError(t, err)
		assertAmount(t, "1000", s.BudgetTotal)
		assertAmount(t, "150", s.EstimatedTotal)
		assertAmount(t, "150", s.ForecastAtCompletion)
	})

	t.Run("should return not found for a missing phase", func(t *testing.T) {
		f := setupService()

		_, err := f.service.GetPhaseFinancialSummary(ctx, 42)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("should fail the whole summary when one category cannot be read", func(t *testing.T) {
		// given
		f := setupService()
		p := f.phases.AddPhase(phase.Phase{ProjectId: 1, BudgetAllocation: budget("100")})
		boom := errors.New("shard unavailable")
		f.costs.FailOn(cost.ProfessionalServices, boom)

		// when
		s, err := f.service.GetPhaseFinancialSummary(ctx, p.Id)

		// then
		assert.ErrorIs(t, err, apperrors.ErrAggregation)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, Summary{}, s)
	})

	t.Run("should fail when committed cost cannot be read", func(t *testing.T) {
		// given
		f := setupService()
		p := f.phases.AddPhase(phase.Phase{ProjectId: 1, BudgetAllocation: budget("100")})
		f.commitments.FailListing(errors.New("timeout"))

		// when
		_, err := f.service.GetPhaseFinancialSummary(ctx, p.Id)

		// then
		assert.ErrorIs(t, err, apperrors.ErrAggregation)
	})
}

func TestServiceImpl_Aggregate(t *testing.T) {
	t.Run("should keep the fee snapshot equal to professional services spend", func(t *testing.T) {
		// given
		f := setupService()
		p := f.phases.AddPhase(phase.Phase{ProjectId: 1, BudgetAllocation: budget("50000")})
		f.costs.Add(
			cost.Record{PhaseId: p.Id, Category: cost.ProfessionalServices, Status: "active", Amount: dec("4000"), Role: "architect"},
			cost.Record{PhaseId: p.Id, Category: cost.ProfessionalServices, Status: "completed", Amount: dec("1000"), Role: "surveyor"},
			cost.Record{PhaseId: p.Id, Category: cost.Labour, Status: "paid", Amount: dec("700"), Role: "mason"},
		)

		// when
		agg, err := f.service.Aggregate(context.Background(), p)

		// then
		require.NoError(t, err)
		assertAmount(t, "5000", agg.ProfessionalServices.Total)
		assertAmount(t, "5000", agg.Summary.ActualByCategory[cost.ProfessionalServices])
		assertAmount(t, "700", agg.Labour.ByRole["mason"])

		snapshot := agg.Snapshot()
		assertAmount(t, "5000", snapshot.ProfessionalServices.TotalFees)
		assert.Equal(t, 2, snapshot.ProfessionalServices.Count)
		assertAmount(t, "5700", snapshot.ActualSpending.Total)
		assertAmount(t, "5700", snapshot.FinancialStates.Actual)
		assertAmount(t, "44300", snapshot.FinancialStates.Remaining)
		assert.Equal(t, now, snapshot.RecalculatedAt)
	})
}

func TestServiceImpl_GetCachedPhaseFinancials(t *testing.T) {
	t.Run("should return the stored snapshot without reading costs", func(t *testing.T) {
		// given
		f := setupService()
		recalculatedAt := now.Add(-time.Hour)
		p := f.phases.AddPhase(phase.Phase{
			ProjectId:          1,
			BudgetAllocation:   budget("1000"),
			FinancialStates:    &phase.FinancialStates{Budgeted: dec("1000"), Actual: dec("100"), Remaining: dec("900")},
			Version:            3,
			LastRecalculatedAt: &recalculatedAt,
		})
		f.costs.FailOn(cost.Materials, errors.New("must not be read"))

		// when
		cached, err := f.service.GetCachedPhaseFinancials(context.Background(), p.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, 3, cached.Version)
		require.NotNil(t, cached.FinancialStates)
		assertAmount(t, "100", cached.FinancialStates.Actual)
		assert.Equal(t, &recalculatedAt, cached.LastRecalculatedAt)
	})
}

func TestServiceImpl_GetProjectFinancialSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("should roll up every phase of the project", func(t *testing.T) {
		// given
		f := setupService()
		first := f.phases.AddPhase(phase.Phase{ProjectId: 7, BudgetAllocation: budget("1000")})
		second := f.phases.AddPhase(phase.Phase{ProjectId: 7, BudgetAllocation: budget("3000")})
		f.phases.AddPhase(phase.Phase{ProjectId: 8, BudgetAllocation: budget("99999")})
		f.costs.Add(
			cost.Record{PhaseId: first.Id, Category: cost.Materials, Status: "received", Amount: dec("600")},
			cost.Record{PhaseId: second.Id, Category: cost.Materials, Status: "approved", Amount: dec("400")},
			cost.Record{PhaseId: second.Id, Category: cost.Subcontractors, Status: "active", Amount: dec("1200")},
		)
		f.commitments.AddPurchaseOrder(commitment.PurchaseOrder{PhaseId: second.Id, TotalAmount: dec("500"), Status: commitment.POAccepted})

		// when
		summary, err := f.service.GetProjectFinancialSummary(ctx, 7)

		// then
		require.NoError(t, err)
		require.Len(t, summary.Phases, 2)
		assert.Equal(t, first.Id, summary.Phases[0].PhaseId)
		assertAmount(t, "600", summary.Phases[0].ActualTotal)
		assertAmount(t, "1600", summary.Phases[1].ActualTotal)
		assertAmount(t, "4000", summary.Totals.BudgetTotal)
		assertAmount(t, "2200", summary.Totals.ActualTotal)
		assertAmount(t, "500", summary.Totals.CommittedTotal)
		assertAmount(t, "1300", summary.Totals.Remaining)
		assertAmount(t, "55", summary.Totals.UtilizationPercentage)
		assert.Equal(t, cost.Subcontractors, summary.Totals.CategoryBreakdown[0].Category)
		assert.Equal(t, 2, summary.Totals.CategoryBreakdown[1].Count)
	})

	t.Run("should return an empty roll-up for a project without phases", func(t *testing.T) {
		// given
		f := setupService()
		f.phases.AddProject(3)

		// when
		summary, err := f.service.GetProjectFinancialSummary(ctx, 3)

		// then
		require.NoError(t, err)
		assert.Empty(t, summary.Phases)
		assertAmount(t, "0", summary.Totals.ActualTotal)
	})

	t.Run("should report a missing project", func(t *testing.T) {
		f := setupService()

		_, err := f.service.GetProjectFinancialSummary(ctx, 404)

		assert.ErrorIs(t, err, phase.ErrProjectNotFound)
	})
}
