package cost_event

import (
	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/pkg/commitment"
	"github.com/buildledger/buildledger/pkg/cost"
)

type Change string

const (
	Created  Change = "created"
	Approved Change = "approved"
	Rejected Change = "rejected"
	Deleted  Change = "deleted"
	Restored Change = "restored"
	// Received marks goods arriving against a purchase order.
	Received Change = "received"
)

var changes = [...]Change{Created, Approved, Rejected, Deleted, Restored, Received}

func ParseChange(s string) (Change, error) {
	for _, c := range changes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", apperrors.Validation("unknown cost change %q", s)
}

type CostEvent struct {
	Category        cost.Category
	RecordId        int
	Change          Change
	PurchaseOrderId *int
}

func (e CostEvent) validate() error {
	if _, err := cost.ParseCategory(string(e.Category)); err != nil {
		return err
	}
	if _, err := ParseChange(string(e.Change)); err != nil {
		return err
	}
	if e.RecordId <= 0 {
		return apperrors.Validation("record id must be positive, got %d", e.RecordId)
	}
	if e.PurchaseOrderId == nil {
		return nil
	}
	if *e.PurchaseOrderId <= 0 {
		return apperrors.Validation("purchase order id must be positive, got %d", *e.PurchaseOrderId)
	}
	if e.Change != Received {
		return apperrors.Validation("a purchase order can only be linked to a %s change, got %s", Received, e.Change)
	}
	return nil
}

type Receipt struct {
	PhaseId int
	Event   CostEvent
	// PurchaseOrder is the order flipped to received, nil when none was linked.
	PurchaseOrder *commitment.PurchaseOrder
	// Synced reports whether the phase's cached financials were rewritten.
	Synced bool
}
