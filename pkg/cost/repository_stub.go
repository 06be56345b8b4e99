package cost

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ReaderStub answers Reader calls from in-memory records.
type ReaderStub struct {
	mu      sync.RWMutex
	nextId  int
	records []Record
	failOn  map[Category]error
}

func NewReaderStub() *ReaderStub {
	return &ReaderStub{failOn: map[Category]error{}}
}

// Add stores records and returns them with ids assigned.
func (s *ReaderStub) Add(records ...Record) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		s.nextId++
		records[i].Id = s.nextId
		if records[i].RecordedAt.IsZero() {
			records[i].RecordedAt = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
		}
		s.records = append(s.records, records[i])
	}
	return records
}

func (s *ReaderStub) SetStatus(id int, status string) {
	s.update(id, func(r *Record) { r.Status = status })
}

func (s *ReaderStub) SoftDelete(id int, at time.Time) {
	s.update(id, func(r *Record) { r.DeletedAt = &at })
}

func (s *ReaderStub) Restore(id int) {
	s.update(id, func(r *Record) { r.DeletedAt = nil })
}

// FailOn makes every read of the category return err. A nil err clears it.
func (s *ReaderStub) FailOn(category Category, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, category)
		return
	}
	s.failOn[category] = err
}

func (s *ReaderStub) update(id int, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].Id == id {
			fn(&s.records[i])
			return
		}
	}
}

func (s *ReaderStub) counting(phaseId int, category Category) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failOn[category]; err != nil {
		return nil, err
	}
	if _, ok := sources[category]; !ok {
		return nil, apperrors.Validation("unknown cost category %q", category)
	}
	var out []Record
	for _, r := range s.records {
		if r.PhaseId == phaseId && r.Category == category && r.Counts() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ReaderStub) SumApproved(ctx context.Context, phaseId int, category Category) (decimal.Decimal, error) {
	t, err := s.Tally(ctx, phaseId, category)
	return t.Total, err
}

func (s *ReaderStub) Tally(ctx context.Context, phaseId int, category Category) (Tally, error) {
	records, err := s.counting(phaseId, category)
	if err != nil {
		return Tally{}, err
	}
	tally := Tally{Category: category, Total: decimal.Zero}
	for _, r := range records {
		tally.Count++
		tally.Total = tally.Total.Add(r.Amount)
	}
	return tally, nil
}

func (s *ReaderStub) MonthlyTotals(ctx context.Context, phaseId int, category Category) ([]MonthlyAmount, error) {
	records, err := s.counting(phaseId, category)
	if err != nil {
		return nil, err
	}
	byMonth := map[time.Time]decimal.Decimal{}
	for _, r := range records {
		at := r.RecordedAt.UTC()
		month := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		byMonth[month] = byMonth[month].Add(r.Amount)
	}
	months := make([]MonthlyAmount, 0, len(byMonth))
	for m, amount := range byMonth {
		months = append(months, MonthlyAmount{Month: m, Amount: amount})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month.Before(months[j].Month) })
	return months, nil
}

func (s *ReaderStub) RoleBreakdown(ctx context.Context, phaseId int, category Category) (RoleBreakdown, error) {
	if !category.HasRoleBreakdown() {
		return RoleBreakdown{}, apperrors.Validation("category %s has no role breakdown", category)
	}
	records, err := s.counting(phaseId, category)
	if err != nil {
		return RoleBreakdown{}, err
	}
	breakdown := RoleBreakdown{Category: category, Total: decimal.Zero, ByRole: map[string]decimal.Decimal{}}
	for _, r := range records {
		breakdown.Count++
		breakdown.Total = breakdown.Total.Add(r.Amount)
		breakdown.ByRole[r.Role] = breakdown.ByRole[r.Role].Add(r.Amount)
	}
	return breakdown, nil
}
