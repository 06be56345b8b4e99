package cost_event

import (
	"net/http"

	"github.com/buildledger/buildledger/internal/rest"
	"github.com/buildledger/buildledger/pkg/cost"
	log "github.com/sirupsen/logrus"
)

type CostEventRequest struct {
	Category        string `json:"category" validate:"required"`
	RecordId        int    `json:"recordId" validate:"required,gt=0"`
	Change          string `json:"change" validate:"required,oneof=created approved rejected deleted restored received"`
	PurchaseOrderId *int   `json:"purchaseOrderId,omitempty" validate:"omitempty,gt=0"`
}

type PurchaseOrderDTO struct {
	Id     int    `json:"id"`
	Number string `json:"number"`
	Status string `json:"status"`
}

type ReceiptDTO struct {
	PhaseId       int               `json:"phaseId"`
	Category      string            `json:"category"`
	RecordId      int               `json:"recordId"`
	Change        string            `json:"change"`
	PurchaseOrder *PurchaseOrderDTO `json:"purchaseOrder,omitempty"`
	Synced        bool              `json:"synced"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RecordCostEvent godoc
// @Summary Record a cost change
// @Description Accepts a change to a phase's cost record and triggers a best-effort recalculation of the phase's cached financials
// @Tags CostEvents
// @Accept json
// @Produce json
// @Param phaseId path int true "Phase ID"
// @Param request body CostEventRequest true "Cost change"
// @Success 202 {object} ReceiptDTO
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Router /api/phases/{phaseId}/cost-events [post]
func (h *Handler) RecordCostEvent(w http.ResponseWriter, r *http.Request) {
	phaseId, err := rest.PathId(r, "phaseId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var req CostEventRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, err)
		return
	}
	log.Debugf("Recording %s of %s record %d for phase %d", req.Change, req.Category, req.RecordId, phaseId)

	receipt, err := h.service.Record(r.Context(), phaseId, DTOToCostEvent(req))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusAccepted, ReceiptToDTO(receipt))
}

func DTOToCostEvent(req CostEventRequest) CostEvent {
	return CostEvent{
		Category:        cost.Category(req.Category),
		RecordId:        req.RecordId,
		Change:          Change(req.Change),
		PurchaseOrderId: req.PurchaseOrderId,
	}
}

func ReceiptToDTO(r Receipt) ReceiptDTO {
	dto := ReceiptDTO{
		PhaseId:  r.PhaseId,
		Category: string(r.Event.Category),
		RecordId: r.Event.RecordId,
		Change:   string(r.Event.Change),
		Synced:   r.Synced,
	}
	if po := r.PurchaseOrder; po != nil {
		dto.PurchaseOrder = &PurchaseOrderDTO{Id: po.Id, Number: po.Number, Status: string(po.Status)}
	}
	return dto
}
