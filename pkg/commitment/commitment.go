package commitment

import (
	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PODraft            PurchaseOrderStatus = "draft"
	POPendingApproval  PurchaseOrderStatus = "pending_approval"
	POSent             PurchaseOrderStatus = "sent"
	POAccepted         PurchaseOrderStatus = "accepted"
	POReadyForDelivery PurchaseOrderStatus = "ready_for_delivery"
	PODelivered        PurchaseOrderStatus = "delivered"
	POReceived         PurchaseOrderStatus = "received"
	POCancelled        PurchaseOrderStatus = "cancelled"
	PORejected         PurchaseOrderStatus = "rejected"
)

// committedStatuses are the purchase order states that bind the phase to a supplier
// without the goods having been received yet.
var committedStatuses = [...]PurchaseOrderStatus{POSent, POAccepted, POReadyForDelivery}

func (s PurchaseOrderStatus) Committed() bool {
	for _, c := range committedStatuses {
		if c == s {
			return true
		}
	}
	return false
}

type MaterialRequestStatus string

const (
	MRRequested        MaterialRequestStatus = "requested"
	MRPendingApproval  MaterialRequestStatus = "pending_approval"
	MRApproved         MaterialRequestStatus = "approved"
	MRConvertedToOrder MaterialRequestStatus = "converted_to_order"
	MRFulfilled        MaterialRequestStatus = "fulfilled"
	MRCancelled        MaterialRequestStatus = "cancelled"
	MRRejected         MaterialRequestStatus = "rejected"
)

var estimatedStatuses = [...]MaterialRequestStatus{MRRequested, MRPendingApproval, MRApproved}

// Estimated reports whether the request is still in the pipeline ahead of an order.
func (s MaterialRequestStatus) Estimated() bool {
	for _, e := range estimatedStatuses {
		if e == s {
			return true
		}
	}
	return false
}

func CommittedStatuses() []string {
	out := make([]string, len(committedStatuses))
	for i, s := range committedStatuses {
		out[i] = string(s)
	}
	return out
}

func EstimatedStatuses() []string {
	out := make([]string, len(estimatedStatuses))
	for i, s := range estimatedStatuses {
		out[i] = string(s)
	}
	return out
}

type PurchaseOrder struct {
	Id          int
	PhaseId     int
	Number      string
	TotalAmount decimal.Decimal
	Status      PurchaseOrderStatus
}

type MaterialRequest struct {
	Id                int
	PhaseId           int
	EstimatedCost     *decimal.Decimal
	EstimatedUnitCost *decimal.Decimal
	QuantityNeeded    decimal.Decimal
	Status            MaterialRequestStatus
}

// Estimate is the request's explicit estimate, else unit cost times quantity, else zero.
func (r MaterialRequest) Estimate() decimal.Decimal {
	if r.EstimatedCost != nil {
		return *r.EstimatedCost
	}
	if r.EstimatedUnitCost != nil {
		return r.EstimatedUnitCost.Mul(r.QuantityNeeded)
	}
	return decimal.Zero
}
