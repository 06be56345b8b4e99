package cost_event

import (
	"context"
	"testing"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/internal/event_bus"
	"github.com/buildledger/buildledger/internal/utils"
	"github.com/buildledger/buildledger/pkg/commitment"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/buildledger/buildledger/pkg/financials"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/buildledger/buildledger/pkg/phase_sync"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	phases      *phase.RepositoryStub
	costs       *cost.ReaderStub
	commitments *commitment.RepositoryStub
	bus         *event_bus.EventBus
	published   *[]event_bus.CostRecordChanged
	service     *ServiceImpl
}

// setupService wires the intake to a real bus with the phase sync subscribed when syncEnabled.
func setupService(syncEnabled bool) fixture {
	f := fixture{
		phases:      phase.NewRepositoryStub(),
		costs:       cost.NewReaderStub(),
		commitments: commitment.NewRepositoryStub(),
		bus:         event_bus.NewEventBus(),
		published:   &[]event_bus.CostRecordChanged{},
	}
	event_bus.SubscribeTyped(f.bus, event_bus.CostRecordChangedEvent, func(e event_bus.EventT[event_bus.CostRecordChanged]) error {
		*f.published = append(*f.published, e.Data)
		return nil
	})
	if syncEnabled {
		aggregator := financials.NewService(f.phases, f.costs, commitment.NewCalculator(f.commitments), utils.NewFixedClock(now))
		phase_sync.NewService(f.phases, aggregator, 1).Subscribe(f.bus)
	}
	f.service = NewService(f.phases, f.commitments, f.bus, syncEnabled)
	return f
}

func (f fixture) addPhase() phase.Phase {
	return f.phases.AddPhase(phase.Phase{
		ProjectId:        1,
		BudgetAllocation: phase.BudgetAllocation{Total: decimal.NewFromInt(100000), ByCategory: map[cost.Category]decimal.Decimal{}},
	})
}

func intPtr(i int) *int {
	return &i
}

func TestServiceImpl_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("should publish the change and sync the phase", func(t *testing.T) {
		// given
		f := setupService(true)
		p := f.addPhase()
		record := f.costs.Add(cost.Record{PhaseId: p.Id, Category: cost.Labour, Status: "approved", Amount: decimal.NewFromInt(2500), Role: "mason"})[0]

		// when
		receipt, err := f.service.Record(ctx, p.Id, CostEvent{Category: cost.Labour, RecordId: record.Id, Change: Approved})

		// then
		require.NoError(t, err)
		assert.True(t, receipt.Synced)
		assert.Nil(t, receipt.PurchaseOrder)
		require.Len(t, *f.published, 1)
		assert.Equal(t, event_bus.CostRecordChanged{PhaseId: p.Id, Category: "labour", RecordId: record.Id, Change: "approved"}, (*f.published)[0])

		stored, err := f.phases.GetPhase(ctx, p.Id)
		require.NoError(t, err)
		require.NotNil(t, stored.FinancialStates)
		assert.True(t, decimal.NewFromInt(2500).Equal(stored.FinancialStates.Actual))
	})

	t.Run("should move a received purchase order out of committed cost", func(t *testing.T) {
		// given
		f := setupService(true)
		p := f.addPhase()
		po := f.commitments.AddPurchaseOrder(commitment.PurchaseOrder{PhaseId: p.Id, Number: "PO-7", TotalAmount: decimal.NewFromInt(20000), Status: commitment.POSent})
		record := f.costs.Add(cost.Record{PhaseId: p.Id, Category: cost.Materials, Status: "received", Amount: decimal.NewFromInt(20000)})[0]

		// when
		receipt, err := f.service.Record(ctx, p.Id, CostEvent{Category: cost.Materials, RecordId: record.Id, Change: Received, PurchaseOrderId: intPtr(po.Id)})

		// then
		require.NoError(t, err)
		require.NotNil(t, receipt.PurchaseOrder)
		assert.Equal(t, commitment.POReceived, receipt.PurchaseOrder.Status)
		stored, _ := f.commitments.PurchaseOrder(po.Id)
		assert.Equal(t, commitment.POReceived, stored.Status)

		synced, err := f.phases.GetPhase(ctx, p.Id)
		require.NoError(t, err)
		assert.True(t, synced.FinancialStates.Committed.IsZero())
		assert.True(t, decimal.NewFromInt(20000).Equal(synced.FinancialStates.Actual))
		assert.True(t, decimal.NewFromInt(80000).Equal(synced.FinancialStates.Remaining))
	})

	t.Run("should accept the change when the sync fails", func(t *testing.T) {
		// given
		f := setupService(true)
		p := f.addPhase()
		f.phases.BeforeUpdate(f.phases.BumpVersion)

		// when
		receipt, err := f.service.Record(ctx, p.Id, CostEvent{Category: cost.Expenses, RecordId: 3, Change: Deleted})

		// then
		require.NoError(t, err)
		assert.False(t, receipt.Synced)
		assert.Len(t, *f.published, 1)
		assert.Equal(t, 0, f.phases.Updates())
	})

	t.Run("should not report a sync when syncing is disabled", func(t *testing.T) {
		f := setupService(false)
		p := f.addPhase()

		receipt, err := f.service.Record(ctx, p.Id, CostEvent{Category: cost.Equipment, RecordId: 1, Change: Created})

		require.NoError(t, err)
		assert.False(t, receipt.Synced)
		assert.Len(t, *f.published, 1)
		assert.Equal(t, 0, f.phases.Updates())
	})

	t.Run("should reject invalid events without publishing", func(t *testing.T) {
		f := setupService(true)
		p := f.addPhase()

		cases := []struct {
			name  string
			event CostEvent
		}{
			{"unknown category", CostEvent{Category: "catering", RecordId: 1, Change: Created}},
			{"unknown change", CostEvent{Category: cost.Materials, RecordId: 1, Change: "archived"}},
			{"missing record", CostEvent{Category: cost.Materials, Change: Created}},
			{"order on a non-receipt", CostEvent{Category: cost.Materials, RecordId: 1, Change: Approved, PurchaseOrderId: intPtr(1)}},
			{"non-positive order", CostEvent{Category: cost.Materials, RecordId: 1, Change: Received, PurchaseOrderId: intPtr(0)}},
		}
		for _, tc := range cases {
			_, err := f.service.Record(ctx, p.Id, tc.event)
			assert.ErrorIs(t, err, apperrors.ErrValidation, tc.name)
		}
		assert.Empty(t, *f.published)
	})

	t.Run("should return not found for an unknown phase", func(t *testing.T) {
		f := setupService(true)

		_, err := f.service.Record(ctx, 12, CostEvent{Category: cost.Materials, RecordId: 1, Change: Created})

		assert.ErrorIs(t, err, phase.ErrPhaseNotFound)
		assert.Empty(t, *f.published)
	})

	t.Run("should return not found for an order of another phase", func(t *testing.T) {
		// given
		f := setupService(true)
		p := f.addPhase()
		other := f.addPhase()
		po := f.commitments.AddPurchaseOrder(commitment.PurchaseOrder{PhaseId: other.Id, TotalAmount: decimal.NewFromInt(5), Status: commitment.POSent})

		// when
		_, err := f.service.Record(ctx, p.Id, CostEvent{Category: cost.Materials, RecordId: 1, Change: Received, PurchaseOrderId: intPtr(po.Id)})

		// then
		assert.ErrorIs(t, err, commitment.ErrPurchaseOrderNotFound)
		assert.Empty(t, *f.published)
		stored, _ := f.commitments.PurchaseOrder(po.Id)
		assert.Equal(t, commitment.POSent, stored.Status)
	})
}

func TestParseChange(t *testing.T) {
	for _, c := range changes {
		got, err := ParseChange(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseChange("APPROVED")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
