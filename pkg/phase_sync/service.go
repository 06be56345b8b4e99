package phase_sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/internal/event_bus"
	"github.com/buildledger/buildledger/pkg/financials"
	"github.com/buildledger/buildledger/pkg/phase"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Aggregator interface {
	Aggregate(ctx context.Context, p phase.Phase) (financials.Aggregate, error)
}

type Service interface {
	// RecalculateAndPersist aggregates the phase from its cost collections and writes
	// the result onto the phase row. Calls for the same phase are serialized.
	RecalculateAndPersist(ctx context.Context, phaseId int) (phase.Phase, error)
}

type ServiceImpl struct {
	phases      phase.Repository
	aggregator  Aggregator
	maxAttempts int
	locks       *phaseLocks
}

func NewService(phases phase.Repository, aggregator Aggregator, maxAttempts int) *ServiceImpl {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ServiceImpl{
		phases:      phases,
		aggregator:  aggregator,
		maxAttempts: maxAttempts,
		locks:       newPhaseLocks(),
	}
}

// Subscribe recalculates the affected phase on every cost.record.changed event.
func (s *ServiceImpl) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.CostRecordChangedEvent, s.handleCostRecordChanged)
}

func (s *ServiceImpl) handleCostRecordChanged(e event_bus.EventT[event_bus.CostRecordChanged]) error {
	change := e.Data
	log.Debugf("Syncing phase %d after %s %s record %d", change.PhaseId, change.Change, change.Category, change.RecordId)
	if _, err := s.RecalculateAndPersist(e.Context(), change.PhaseId); err != nil {
		log.Warnf("phase %d: financials not synced after %s %s record %d: %v", change.PhaseId, change.Change, change.Category, change.RecordId, err)
		if errors.Is(err, apperrors.ErrSyncFailed) {
			return err
		}
		return fmt.Errorf("%w: phase %d: %w", apperrors.ErrSyncFailed, change.PhaseId, err)
	}
	return nil
}

func (s *ServiceImpl) RecalculateAndPersist(ctx context.Context, phaseId int) (phase.Phase, error) {
	unlock := s.locks.lock(phaseId)
	defer unlock()

	logger := log.WithFields(log.Fields{
		"phaseId": phaseId,
		"syncRun": uuid.NewString(),
	})
	start := time.Now()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		p, err := s.phases.GetPhase(ctx, phaseId)
		if err != nil {
			return phase.Phase{}, err
		}

		agg, err := s.aggregator.Aggregate(ctx, p)
		if err != nil {
			logger.Errorf("aggregation failed: %v", err)
			return phase.Phase{}, err
		}

		updated, err := s.phases.UpdateFinancials(ctx, p.Id, p.Version, agg.Snapshot())
		if errors.Is(err, phase.ErrStaleVersion) {
			logger.Warnf("version %d went stale on attempt %d/%d, re-aggregating", p.Version, attempt, s.maxAttempts)
			continue
		}
		if err != nil {
			logger.Errorf("failed to store financials: %v", err)
			return phase.Phase{}, err
		}

		logger.WithFields(log.Fields{
			"version":  updated.Version,
			"attempts": attempt,
			"elapsed":  time.Since(start).String(),
		}).Infof("phase financials recalculated: actual %s, remaining %s", agg.Summary.ActualTotal, agg.Summary.Remaining)
		return updated, nil
	}

	return phase.Phase{}, fmt.Errorf("%w: phase %d still stale after %d attempts: %w",
		apperrors.ErrSyncFailed, phaseId, s.maxAttempts, phase.ErrStaleVersion)
}
