package floor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

type allocationKey struct {
	floorId int
	phaseId int
}

type RepositoryStub struct {
	mu          sync.RWMutex
	nextId      int
	floors      map[int]Floor
	allocations map[allocationKey]Allocation
	phases      map[int]int
	replaceErr  error
	writes      int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		floors:      map[int]Floor{},
		allocations: map[allocationKey]Allocation{},
		phases:      map[int]int{},
	}
}

// AddPhase registers the project a phase belongs to.
func (s *RepositoryStub) AddPhase(phaseId, projectId int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[phaseId] = projectId
}

func (s *RepositoryStub) AddFloor(f Floor) Floor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	f.Id = s.nextId
	f.Allocation = nil
	s.floors[f.Id] = f
	return f
}

func (s *RepositoryStub) SetAllocation(floorId, phaseId int, a Allocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocations[allocationKey{floorId, phaseId}] = a
}

func (s *RepositoryStub) FailReplace(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceErr = err
}

// Writes counts successful ReplaceAllocations calls.
func (s *RepositoryStub) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *RepositoryStub) ListForPhase(ctx context.Context, projectId, phaseId int) ([]Floor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(projectId, phaseId), nil
}

func (s *RepositoryStub) listLocked(projectId, phaseId int) []Floor {
	floors := make([]Floor, 0)
	for _, f := range s.floors {
		if f.ProjectId != projectId || f.DeletedAt != nil {
			continue
		}
		if a, ok := s.allocations[allocationKey{f.Id, phaseId}]; ok {
			f.Allocation = &a
		}
		floors = append(floors, f)
	}
	sort.Slice(floors, func(i, j int) bool {
		if floors[i].FloorNumber != floors[j].FloorNumber {
			return floors[i].FloorNumber < floors[j].FloorNumber
		}
		return floors[i].Id < floors[j].Id
	})
	return floors
}

func (s *RepositoryStub) ReplaceAllocations(ctx context.Context, phaseId int, ceiling decimal.Decimal, allocations []FloorAllocation) ([]Floor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	projectId, ok := s.phases[phaseId]
	if !ok {
		return nil, ErrPhaseNotFound
	}

	submitted := decimal.Zero
	inSubmission := map[int]bool{}
	for _, a := range allocations {
		f, ok := s.floors[a.FloorId]
		if !ok || f.ProjectId != projectId || f.DeletedAt != nil {
			return nil, ErrFloorNotFound
		}
		inSubmission[a.FloorId] = true
		submitted = submitted.Add(a.Allocation.Total)
	}
	others := decimal.Zero
	for key, a := range s.allocations {
		f, ok := s.floors[key.floorId]
		if key.phaseId == phaseId && !inSubmission[key.floorId] && ok && f.DeletedAt == nil {
			others = others.Add(a.Total)
		}
	}
	if submitted.Add(others).GreaterThan(ceiling) {
		return nil, fmt.Errorf("%w: %s allocated against a budget of %s", ErrAllocationExceedsBudget, submitted.Add(others), ceiling)
	}

	for _, a := range allocations {
		s.allocations[allocationKey{a.FloorId, phaseId}] = a.Allocation
	}
	s.writes++
	return s.listLocked(projectId, phaseId), nil
}
