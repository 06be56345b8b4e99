package financials

import (
	"net/http"
	"time"

	"github.com/buildledger/buildledger/internal/rest"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type CategoryTotalDTO struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type TrendPointDTO struct {
	Month      string                     `json:"month"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
	Total      decimal.Decimal            `json:"total"`
	Cumulative decimal.Decimal            `json:"cumulative"`
}

type SummaryDTO struct {
	PhaseId        int             `json:"phaseId,omitempty"`
	BudgetTotal    decimal.Decimal `json:"budgetTotal"`
	ActualTotal    decimal.Decimal `json:"actualTotal"`
	CommittedTotal decimal.Decimal `json:"committedTotal"`
	EstimatedTotal decimal.Decimal `json:"estimatedTotal"`
	Remaining      decimal.Decimal `json:"remaining"`
	Variance       decimal.Decimal `json:"variance"`
	// Percentages are null when spending exists against a zero budget.
	VariancePercentage    *decimal.Decimal           `json:"variancePercentage"`
	UtilizationPercentage *decimal.Decimal           `json:"utilizationPercentage"`
	UtilizationUnbounded  bool                       `json:"utilizationUnbounded"`
	ForecastAtCompletion  decimal.Decimal            `json:"forecastAtCompletion"`
	ForecastVariance      decimal.Decimal            `json:"forecastVariance"`
	ActualByCategory      map[string]decimal.Decimal `json:"actualByCategory"`
	CategoryBreakdown     []CategoryTotalDTO         `json:"categoryBreakdown"`
	Trends                []TrendPointDTO            `json:"trends"`
	CalculatedAt          time.Time                  `json:"calculatedAt"`
}

type ProjectSummaryDTO struct {
	ProjectId int          `json:"projectId"`
	Phases    []SummaryDTO `json:"phases"`
	Totals    SummaryDTO   `json:"totals"`
}

type FinancialStatesDTO struct {
	Budgeted  decimal.Decimal `json:"budgeted"`
	Estimated decimal.Decimal `json:"estimated"`
	Committed decimal.Decimal `json:"committed"`
	Actual    decimal.Decimal `json:"actual"`
	Remaining decimal.Decimal `json:"remaining"`
}

type ProfessionalServicesDTO struct {
	Count      int                        `json:"count"`
	TotalFees  decimal.Decimal            `json:"totalFees"`
	FeesByRole map[string]decimal.Decimal `json:"feesByRole"`
}

type CachedFinancialsDTO struct {
	PhaseId              int                        `json:"phaseId"`
	Budget               decimal.Decimal            `json:"budget"`
	FinancialStates      *FinancialStatesDTO        `json:"financialStates"`
	ActualSpending       map[string]decimal.Decimal `json:"actualSpending"`
	ActualSpendingTotal  decimal.Decimal            `json:"actualSpendingTotal"`
	ProfessionalServices *ProfessionalServicesDTO   `json:"professionalServices"`
	Version              int                        `json:"version"`
	LastRecalculatedAt   *time.Time                 `json:"lastRecalculatedAt"`
	// Authoritative is always false: cached figures may trail the cost records.
	Authoritative bool `json:"authoritative"`
}

type Handler struct {
	service     Service
	csvRenderer SummaryRenderer
}

func NewHandler(service Service, csvRenderer SummaryRenderer) *Handler {
	return &Handler{service: service, csvRenderer: csvRenderer}
}

// GetPhaseSummary godoc
// @Summary Phase financial summary
// @Description Aggregates every cost category of the phase from source records. Send Accept: text/csv for the monthly trend table.
// @Tags Financials
// @Produce json
// @Produce text/csv
// @Param phaseId path int true "Phase ID"
// @Success 200 {object} SummaryDTO
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Failure 502 {object} rest.ErrorDTO
// @Router /api/phases/{phaseId}/financials [get]
func (h *Handler) GetPhaseSummary(w http.ResponseWriter, r *http.Request) {
	phaseId, err := rest.PathId(r, "phaseId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	log.Debugf("Calculating financial summary of phase %d", phaseId)

	summary, err := h.service.GetPhaseFinancialSummary(r.Context(), phaseId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	if r.Header.Get("Accept") == "text/csv" {
		csv, err := h.csvRenderer.RenderSummary(summary)
		if err != nil {
			rest.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if _, err := w.Write([]byte(csv)); err != nil {
			log.Errorf("failed to write csv summary of phase %d: %v", phaseId, err)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, SummaryToDTO(summary))
}

// GetCachedPhaseFinancials godoc
// @Summary Cached phase financials
// @Description Returns the snapshot stored by the last recalculation without reading cost records
// @Tags Financials
// @Produce json
// @Param phaseId path int true "Phase ID"
// @Success 200 {object} CachedFinancialsDTO
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Router /api/phases/{phaseId}/financials/cached [get]
func (h *Handler) GetCachedPhaseFinancials(w http.ResponseWriter, r *http.Request) {
	phaseId, err := rest.PathId(r, "phaseId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	cached, err := h.service.GetCachedPhaseFinancials(r.Context(), phaseId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, CachedToDTO(cached))
}

// GetProjectSummary godoc
// @Summary Project financial roll-up
// @Description Aggregates every live phase of the project and totals them
// @Tags Financials
// @Produce json
// @Param projectId path int true "Project ID"
// @Success 200 {object} ProjectSummaryDTO
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Failure 502 {object} rest.ErrorDTO
// @Router /api/projects/{projectId}/financials [get]
func (h *Handler) GetProjectSummary(w http.ResponseWriter, r *http.Request) {
	projectId, err := rest.PathId(r, "projectId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	summary, err := h.service.GetProjectFinancialSummary(r.Context(), projectId)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, ProjectSummaryToDTO(summary))
}

func ProjectSummaryToDTO(summary ProjectSummary) ProjectSummaryDTO {
	dto := ProjectSummaryDTO{ProjectId: summary.ProjectId, Phases: make([]SummaryDTO, 0, len(summary.Phases))}
	for _, s := range summary.Phases {
		dto.Phases = append(dto.Phases, SummaryToDTO(s))
	}
	dto.Totals = SummaryToDTO(summary.Totals)
	return dto
}

func SummaryToDTO(s Summary) SummaryDTO {
	dto := SummaryDTO{
		PhaseId:              s.PhaseId,
		BudgetTotal:          s.BudgetTotal,
		ActualTotal:          s.ActualTotal,
		CommittedTotal:       s.CommittedTotal,
		EstimatedTotal:       s.EstimatedTotal,
		Remaining:            s.Remaining,
		Variance:             s.Variance,
		UtilizationUnbounded: s.UtilizationUnbounded,
		ForecastAtCompletion: s.ForecastAtCompletion,
		ForecastVariance:     s.ForecastVariance,
		ActualByCategory:     categoryMap(s.ActualByCategory),
		CategoryBreakdown:    make([]CategoryTotalDTO, 0, len(s.CategoryBreakdown)),
		Trends:               make([]TrendPointDTO, 0, len(s.Trends)),
		CalculatedAt:         s.CalculatedAt,
	}
	if !s.UtilizationUnbounded {
		utilization := s.UtilizationPercentage
		variancePct := s.VariancePercentage
		dto.UtilizationPercentage = &utilization
		dto.VariancePercentage = &variancePct
	}
	for _, t := range s.CategoryBreakdown {
		dto.CategoryBreakdown = append(dto.CategoryBreakdown, CategoryTotalDTO{Category: string(t.Category), Count: t.Count, Total: t.Total})
	}
	for _, p := range s.Trends {
		dto.Trends = append(dto.Trends, TrendPointDTO{
			Month:      p.Month.Format("2006-01"),
			ByCategory: categoryMap(p.ByCategory),
			Total:      p.Total,
			Cumulative: p.Cumulative,
		})
	}
	return dto
}

func CachedToDTO(c CachedFinancials) CachedFinancialsDTO {
	dto := CachedFinancialsDTO{
		PhaseId:             c.PhaseId,
		Budget:              c.Budget,
		ActualSpending:      categoryMap(c.ActualSpending.ByCategory),
		ActualSpendingTotal: c.ActualSpending.Total,
		Version:             c.Version,
		LastRecalculatedAt:  c.LastRecalculatedAt,
	}
	if c.FinancialStates != nil {
		dto.FinancialStates = &FinancialStatesDTO{
			Budgeted:  c.FinancialStates.Budgeted,
			Estimated: c.FinancialStates.Estimated,
			Committed: c.FinancialStates.Committed,
			Actual:    c.FinancialStates.Actual,
			Remaining: c.FinancialStates.Remaining,
		}
	}
	if c.ProfessionalServices != nil {
		dto.ProfessionalServices = &ProfessionalServicesDTO{
			Count:      c.ProfessionalServices.Count,
			TotalFees:  c.ProfessionalServices.TotalFees,
			FeesByRole: c.ProfessionalServices.FeesByRole,
		}
	}
	return dto
}

func categoryMap(in map[cost.Category]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
