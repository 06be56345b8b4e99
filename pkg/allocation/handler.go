package allocation

import (
	"net/http"

	"github.com/buildledger/buildledger/internal/rest"
	"github.com/buildledger/buildledger/pkg/floor"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type AllocationDTO struct {
	Total          decimal.Decimal `json:"total"`
	Materials      decimal.Decimal `json:"materials"`
	Labour         decimal.Decimal `json:"labour"`
	Equipment      decimal.Decimal `json:"equipment"`
	Subcontractors decimal.Decimal `json:"subcontractors"`
}

type SuggestionDTO struct {
	FloorId         int             `json:"floorId"`
	FloorName       string          `json:"floorName"`
	Weight          decimal.Decimal `json:"weight"`
	SuggestedBudget decimal.Decimal `json:"suggestedBudget"`
	Breakdown       AllocationDTO   `json:"breakdown"`
	Current         *AllocationDTO  `json:"current"`
}

type SuggestionResultDTO struct {
	PhaseId     int             `json:"phaseId"`
	Strategy    string          `json:"strategy"`
	PhaseBudget decimal.Decimal `json:"phaseBudget"`
	Suggestions []SuggestionDTO `json:"suggestions"`
	Unallocated decimal.Decimal `json:"unallocated"`
}

type FloorAllocationDTO struct {
	FloorId        int             `json:"floorId" validate:"required,gt=0"`
	Total          decimal.Decimal `json:"total"`
	Materials      decimal.Decimal `json:"materials"`
	Labour         decimal.Decimal `json:"labour"`
	Equipment      decimal.Decimal `json:"equipment"`
	Subcontractors decimal.Decimal `json:"subcontractors"`
}

type ApplyAllocationsRequest struct {
	Allocations []FloorAllocationDTO `json:"allocations" validate:"required,min=1,dive"`
}

type FloorDTO struct {
	Id          int              `json:"id"`
	FloorNumber int              `json:"floorNumber"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Area        *decimal.Decimal `json:"area,omitempty"`
	Allocation  *AllocationDTO   `json:"allocation"`
}

type ApplyAllocationsResponse struct {
	PhaseId int        `json:"phaseId"`
	Floors  []FloorDTO `json:"floors"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetSuggestions godoc
// @Summary Suggest floor budgets
// @Description Distributes the phase budget over the project's floors with the chosen strategy
// @Tags FloorAllocation
// @Produce json
// @Param phaseId path int true "Phase ID"
// @Param strategy query string false "even | weighted | manual" default(even)
// @Success 200 {object} SuggestionResultDTO
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Router /api/phases/{phaseId}/floor-allocations/suggestions [get]
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	phaseId, err := rest.PathId(r, "phaseId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	raw := r.URL.Query().Get("strategy")
	if raw == "" {
		raw = string(Even)
	}
	strategy, err := ParseStrategy(raw)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	log.Debugf("Suggesting %s floor allocations for phase %d", strategy, phaseId)

	result, err := h.service.SuggestFloorAllocations(r.Context(), phaseId, strategy)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SuggestionsToDTO(result))
}

// ApplyAllocations godoc
// @Summary Apply floor budgets
// @Description Replaces the submitted floors' allocations in one transaction. Rejected without any write when the phase budget would be exceeded.
// @Tags FloorAllocation
// @Accept json
// @Produce json
// @Param phaseId path int true "Phase ID"
// @Param request body ApplyAllocationsRequest true "Floor allocations"
// @Success 200 {object} ApplyAllocationsResponse
// @Failure 400 {object} rest.ErrorDTO
// @Failure 404 {object} rest.ErrorDTO
// @Router /api/phases/{phaseId}/floor-allocations [put]
func (h *Handler) ApplyAllocations(w http.ResponseWriter, r *http.Request) {
	phaseId, err := rest.PathId(r, "phaseId")
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	var req ApplyAllocationsRequest
	if err := rest.Decode(r, &req); err != nil {
		rest.WriteError(w, err)
		return
	}

	allocations := make([]floor.FloorAllocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		allocations = append(allocations, DTOToFloorAllocation(a))
	}

	floors, err := h.service.ApplyFloorAllocations(r.Context(), phaseId, allocations)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	resp := ApplyAllocationsResponse{PhaseId: phaseId, Floors: make([]FloorDTO, 0, len(floors))}
	for _, f := range floors {
		resp.Floors = append(resp.Floors, FloorToDTO(f))
	}
	rest.WriteJSON(w, http.StatusOK, resp)
}

func SuggestionsToDTO(result SuggestionResult) SuggestionResultDTO {
	dto := SuggestionResultDTO{
		PhaseId:     result.PhaseId,
		Strategy:    string(result.Strategy),
		PhaseBudget: result.PhaseBudget,
		Suggestions: make([]SuggestionDTO, 0, len(result.Suggestions)),
		Unallocated: result.Unallocated,
	}
	for _, s := range result.Suggestions {
		dto.Suggestions = append(dto.Suggestions, SuggestionDTO{
			FloorId:         s.FloorId,
			FloorName:       s.FloorName,
			Weight:          s.Weight,
			SuggestedBudget: s.SuggestedBudget,
			Breakdown:       AllocationToDTO(s.Breakdown),
			Current:         allocationPtrToDTO(s.Current),
		})
	}
	return dto
}

func FloorToDTO(f floor.Floor) FloorDTO {
	return FloorDTO{
		Id:          f.Id,
		FloorNumber: f.FloorNumber,
		Name:        f.Name,
		Type:        string(f.Type),
		Area:        f.Area,
		Allocation:  allocationPtrToDTO(f.Allocation),
	}
}

func AllocationToDTO(a floor.Allocation) AllocationDTO {
	return AllocationDTO{
		Total:          a.Total,
		Materials:      a.Materials,
		Labour:         a.Labour,
		Equipment:      a.Equipment,
		Subcontractors: a.Subcontractors,
	}
}

func allocationPtrToDTO(a *floor.Allocation) *AllocationDTO {
	if a == nil {
		return nil
	}
	dto := AllocationToDTO(*a)
	return &dto
}

func DTOToFloorAllocation(dto FloorAllocationDTO) floor.FloorAllocation {
	return floor.FloorAllocation{
		FloorId: dto.FloorId,
		Allocation: floor.Allocation{
			Total:          dto.Total,
			Materials:      dto.Materials,
			Labour:         dto.Labour,
			Equipment:      dto.Equipment,
			Subcontractors: dto.Subcontractors,
		},
	}
}
