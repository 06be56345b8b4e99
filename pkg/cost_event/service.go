package cost_event

import (
	"context"

	"github.com/buildledger/buildledger/internal/event_bus"
	"github.com/buildledger/buildledger/pkg/commitment"
	"github.com/buildledger/buildledger/pkg/phase"
	log "github.com/sirupsen/logrus"
)

type PurchaseOrderReceiver interface {
	MarkPurchaseOrderReceived(ctx context.Context, phaseId, purchaseOrderId int) (commitment.PurchaseOrder, error)
}

type Publisher interface {
	Publish(e event_bus.Event) error
}

type Service interface {
	// Record accepts a cost record change for the phase. The business effect is
	// applied before the event is published; a failed sync never fails Record.
	Record(ctx context.Context, phaseId int, event CostEvent) (Receipt, error)
}

type ServiceImpl struct {
	phases      phase.Repository
	orders      PurchaseOrderReceiver
	bus         Publisher
	syncEnabled bool
}

func NewService(phases phase.Repository, orders PurchaseOrderReceiver, bus Publisher, syncEnabled bool) *ServiceImpl {
	return &ServiceImpl{phases: phases, orders: orders, bus: bus, syncEnabled: syncEnabled}
}

func (s *ServiceImpl) Record(ctx context.Context, phaseId int, event CostEvent) (Receipt, error) {
	if err := event.validate(); err != nil {
		return Receipt{}, err
	}
	if _, err := s.phases.GetPhase(ctx, phaseId); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{PhaseId: phaseId, Event: event}
	if event.PurchaseOrderId != nil {
		po, err := s.orders.MarkPurchaseOrderReceived(ctx, phaseId, *event.PurchaseOrderId)
		if err != nil {
			log.Errorf("phase %d: failed to receive purchase order %d: %v", phaseId, *event.PurchaseOrderId, err)
			return Receipt{}, err
		}
		receipt.PurchaseOrder = &po
	}

	err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.CostRecordChangedEvent, event_bus.CostRecordChanged{
		PhaseId:         phaseId,
		Category:        string(event.Category),
		RecordId:        event.RecordId,
		Change:          string(event.Change),
		PurchaseOrderId: event.PurchaseOrderId,
	}))
	if err != nil {
		log.Warnf("phase %d: %s %s record %d accepted, financials left stale: %v", phaseId, event.Change, event.Category, event.RecordId, err)
		return receipt, nil
	}

	receipt.Synced = s.syncEnabled
	return receipt, nil
}
