package commitment

import (
	"context"
	"sync"
)

type RepositoryStub struct {
	mu       sync.RWMutex
	nextId   int
	orders   map[int]PurchaseOrder
	requests map[int]MaterialRequest
	listErr  error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		orders:   map[int]PurchaseOrder{},
		requests: map[int]MaterialRequest{},
	}
}

func (s *RepositoryStub) AddPurchaseOrder(po PurchaseOrder) PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	po.Id = s.nextId
	s.orders[po.Id] = po
	return po
}

func (s *RepositoryStub) AddMaterialRequest(mr MaterialRequest) MaterialRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	mr.Id = s.nextId
	s.requests[mr.Id] = mr
	return mr
}

func (s *RepositoryStub) PurchaseOrder(id int) (PurchaseOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	po, ok := s.orders[id]
	return po, ok
}

// FailListing makes both list calls return err.
func (s *RepositoryStub) FailListing(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr = err
}

func (s *RepositoryStub) ListOpenPurchaseOrders(ctx context.Context, phaseId int) ([]PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []PurchaseOrder
	for _, po := range s.orders {
		if po.PhaseId == phaseId && po.Status.Committed() {
			out = append(out, po)
		}
	}
	return out, nil
}

func (s *RepositoryStub) ListPipelineRequests(ctx context.Context, phaseId int) ([]MaterialRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []MaterialRequest
	for _, mr := range s.requests {
		if mr.PhaseId == phaseId && mr.Status.Estimated() {
			out = append(out, mr)
		}
	}
	return out, nil
}

func (s *RepositoryStub) MarkPurchaseOrderReceived(ctx context.Context, phaseId, purchaseOrderId int) (PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	po, ok := s.orders[purchaseOrderId]
	if !ok || po.PhaseId != phaseId {
		return PurchaseOrder{}, ErrPurchaseOrderNotFound
	}
	po.Status = POReceived
	s.orders[po.Id] = po
	return po, nil
}
