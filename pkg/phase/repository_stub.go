package phase

import (
	"context"
	"sort"
	"sync"
	"time"
)

type RepositoryStub struct {
	mu        sync.RWMutex
	nextId    int
	phases    map[int]Phase
	projects  map[int]bool
	getErr    error
	updateErr error
	// beforeUpdate runs inside UpdateFinancials before the version check.
	beforeUpdate func(phaseId int)
	updates      int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		phases:   map[int]Phase{},
		projects: map[int]bool{},
	}
}

func (s *RepositoryStub) AddProject(projectId int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[projectId] = true
}

// AddPhase stores p with a fresh id and registers its project.
func (s *RepositoryStub) AddPhase(p Phase) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	p.Id = s.nextId
	s.projects[p.ProjectId] = true
	s.phases[p.Id] = p
	return p
}

func (s *RepositoryStub) SoftDelete(phaseId int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.phases[phaseId]
	p.DeletedAt = &at
	s.phases[phaseId] = p
}

// BumpVersion simulates a concurrent writer.
func (s *RepositoryStub) BumpVersion(phaseId int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.phases[phaseId]
	p.Version++
	s.phases[phaseId] = p
}

func (s *RepositoryStub) FailGet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

func (s *RepositoryStub) FailUpdate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

func (s *RepositoryStub) BeforeUpdate(fn func(phaseId int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeUpdate = fn
}

func (s *RepositoryStub) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

func (s *RepositoryStub) GetPhase(ctx context.Context, phaseId int) (Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.getErr != nil {
		return Phase{}, s.getErr
	}
	p, ok := s.phases[phaseId]
	if !ok || p.DeletedAt != nil {
		return Phase{}, ErrPhaseNotFound
	}
	return p, nil
}

func (s *RepositoryStub) ListByProject(ctx context.Context, projectId int) ([]Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if !s.projects[projectId] {
		return nil, ErrProjectNotFound
	}
	phases := make([]Phase, 0)
	for _, p := range s.phases {
		if p.ProjectId == projectId && p.DeletedAt == nil {
			phases = append(phases, p)
		}
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].Id < phases[j].Id })
	return phases, nil
}

func (s *RepositoryStub) UpdateFinancials(ctx context.Context, phaseId int, expectedVersion int, snapshot FinancialSnapshot) (Phase, error) {
	s.mu.RLock()
	hook := s.beforeUpdate
	s.mu.RUnlock()
	if hook != nil {
		hook(phaseId)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return Phase{}, s.updateErr
	}
	p, ok := s.phases[phaseId]
	if !ok || p.DeletedAt != nil {
		return Phase{}, ErrPhaseNotFound
	}
	if p.Version != expectedVersion {
		return Phase{}, ErrStaleVersion
	}

	states := snapshot.FinancialStates
	services := snapshot.ProfessionalServices
	recalculatedAt := snapshot.RecalculatedAt
	p.ActualSpending = snapshot.ActualSpending
	p.FinancialStates = &states
	p.ProfessionalServices = &services
	p.CategoryBreakdown = append(p.CategoryBreakdown[:0:0], snapshot.CategoryBreakdown...)
	p.LastRecalculatedAt = &recalculatedAt
	p.Version++
	s.phases[phaseId] = p
	s.updates++
	return p, nil
}
