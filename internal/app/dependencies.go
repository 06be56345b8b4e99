package app

import (
	"github.com/buildledger/buildledger/internal/config"
	"github.com/buildledger/buildledger/internal/event_bus"
	"github.com/buildledger/buildledger/internal/utils"
	"github.com/buildledger/buildledger/pkg/allocation"
	"github.com/buildledger/buildledger/pkg/commitment"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/buildledger/buildledger/pkg/cost_event"
	"github.com/buildledger/buildledger/pkg/financials"
	"github.com/buildledger/buildledger/pkg/floor"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/buildledger/buildledger/pkg/phase_sync"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	PhaseRepo      phase.Repository
	FloorRepo      floor.Repository
	CostReader     cost.Reader
	CommitmentRepo commitment.Repository
	Commitments    *commitment.Calculator

	FinancialsService *financials.ServiceImpl
	FinancialsHandler *financials.Handler

	PhaseSyncService *phase_sync.ServiceImpl
	PhaseSyncHandler *phase_sync.Handler

	AllocationService *allocation.ServiceImpl
	AllocationHandler *allocation.Handler

	CostEventService *cost_event.ServiceImpl
	CostEventHandler *cost_event.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	deps.PhaseRepo = phase.NewRepository(db)
	deps.FloorRepo = floor.NewRepository(db)
	deps.CostReader = cost.NewRepository(db)
	deps.CommitmentRepo = commitment.NewRepository(db)
	deps.Commitments = commitment.NewCalculator(deps.CommitmentRepo)

	deps.FinancialsService = financials.NewService(deps.PhaseRepo, deps.CostReader, deps.Commitments, deps.Clock)
	deps.FinancialsHandler = financials.NewHandler(deps.FinancialsService, financials.NewCsvSummaryRenderer(cfg.Finance.CurrencyScale))

	deps.PhaseSyncService = phase_sync.NewService(deps.PhaseRepo, deps.FinancialsService, cfg.Finance.MaxSyncAttempts)
	deps.PhaseSyncHandler = phase_sync.NewHandler(deps.PhaseSyncService)
	if cfg.Finance.SyncOnCostEvents {
		deps.PhaseSyncService.Subscribe(deps.EventBus)
	} else {
		log.Warn("Financial sync on cost events is disabled, cached phase financials are only refreshed on demand")
	}

	deps.AllocationService = allocation.NewService(deps.PhaseRepo, deps.FloorRepo, cfg.Finance.CurrencyScale)
	deps.AllocationHandler = allocation.NewHandler(deps.AllocationService)

	deps.CostEventService = cost_event.NewService(deps.PhaseRepo, deps.CommitmentRepo, deps.EventBus, cfg.Finance.SyncOnCostEvents)
	deps.CostEventHandler = cost_event.NewHandler(deps.CostEventService)

	return deps
}
