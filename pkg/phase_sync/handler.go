package phase_sync

import (
	"net/http"
	"time"

	"github.com/buildledger/buildledger/internal/rest"
	"github.com/buildledger/buildledger/pkg/financials"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type RecalculationDTO struct {
	PhaseId              int                                 `json:"phaseId"`
	Version              int                                 `json:"version"`
	LastRecalculatedAt   *time.Time                          `json:"lastRecalculatedAt"`
	FinancialStates      *financials.FinancialStatesDTO      `json:"financialStates"`
	ActualSpending       map[string]decimal.Decimal          `json:"actualSpending"`
	ActualSpendingTotal  decimal.Decimal                     `json:"actualSpendingTotal"`
	ProfessionalServices *financials.ProfessionalServicesDTO `json:"professionalServices"`
	CategoryBreakdown    []financials.CategoryTotalDTO       `json:"categoryBreakdown"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Recalculate godoc
// @Summary Recalculate phase financials
// @Description Aggregates the phase from its cost collections and stores the result as the phase's cached financials
// @Tags Financials
// @Produce json
// @Param phaseId path int true "Phase ID"
// @Success 200 {object} RecalculationDTO
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Failure 409 {object} rest.ErrorDTO
// @Failure 502 {object} rest.ErrorDTO
// @Router /api/phases/{phaseId}/financials/recalculate [post]
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	phaseId, err := rest.PathId(r, "phaseId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	log.Debugf("Recalculating financials of phase %d", phaseId)

	p, err := h.service.RecalculateAndPersist(r.Context(), phaseId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, PhaseToDTO(p))
}

func PhaseToDTO(p phase.Phase) RecalculationDTO {
	dto := RecalculationDTO{
		PhaseId:             p.Id,
		Version:             p.Version,
		LastRecalculatedAt:  p.LastRecalculatedAt,
		ActualSpending:      make(map[string]decimal.Decimal, len(p.ActualSpending.ByCategory)),
		ActualSpendingTotal: p.ActualSpending.Total,
		CategoryBreakdown:   make([]financials.CategoryTotalDTO, 0, len(p.CategoryBreakdown)),
	}
	for c, amount := range p.ActualSpending.ByCategory {
		dto.ActualSpending[string(c)] = amount
	}
	if fs := p.FinancialStates; fs != nil {
		dto.FinancialStates = &financials.FinancialStatesDTO{
			Budgeted:  fs.Budgeted,
			Estimated: fs.Estimated,
			Committed: fs.Committed,
			Actual:    fs.Actual,
			Remaining: fs.Remaining,
		}
	}
	if ps := p.ProfessionalServices; ps != nil {
		dto.ProfessionalServices = &financials.ProfessionalServicesDTO{
			Count:      ps.Count,
			TotalFees:  ps.TotalFees,
			FeesByRole: ps.FeesByRole,
		}
	}
	for _, t := range p.CategoryBreakdown {
		dto.CategoryBreakdown = append(dto.CategoryBreakdown, financials.CategoryTotalDTO{
			Category: string(t.Category),
			Count:    t.Count,
			Total:    t.Total,
		})
	}
	return dto
}
