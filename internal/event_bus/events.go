package event_bus

const CostRecordChangedEvent EventType = "cost.record.changed"

// CostRecordChanged is published after a cost record moved into or out of the
// set of records that count towards a phase's actual spend.
type CostRecordChanged struct {
	PhaseId  int
	Category string
	RecordId int
	// Change is one of created, approved, rejected, deleted, restored, received.
	Change          string
	PurchaseOrderId *int
}
