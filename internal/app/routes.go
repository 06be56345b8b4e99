package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Phase financials
	r.HandleFunc("/api/phases/{phaseId}/financials", deps.FinancialsHandler.GetPhaseSummary).Methods("GET")
	r.HandleFunc("/api/phases/{phaseId}/financials/cached", deps.FinancialsHandler.GetCachedPhaseFinancials).Methods("GET")
	r.HandleFunc("/api/phases/{phaseId}/financials/recalculate", deps.PhaseSyncHandler.Recalculate).Methods("POST")
	r.HandleFunc("/api/projects/{projectId}/financials", deps.FinancialsHandler.GetProjectSummary).Methods("GET")

	// Cost events
	r.HandleFunc("/api/phases/{phaseId}/cost-events", deps.CostEventHandler.RecordCostEvent).Methods("POST")

	// Floor allocations
	r.HandleFunc("/api/phases/{phaseId}/floor-allocations/suggestions", deps.AllocationHandler.GetSuggestions).Methods("GET")
	r.HandleFunc("/api/phases/{phaseId}/floor-allocations", deps.AllocationHandler.ApplyAllocations).Methods("PUT")
}
