package cost

import (
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

type Category string

const (
	Materials            Category = "materials"
	Expenses             Category = "expenses"
	Labour               Category = "labour"
	Equipment            Category = "equipment"
	Subcontractors       Category = "subcontractors"
	ProfessionalServices Category = "professionalServices"
)

// Categories lists every category that contributes to actual spend, in reporting order.
var Categories = [...]Category{Materials, Expenses, Labour, Equipment, Subcontractors, ProfessionalServices}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", apperrors.Validation("unknown cost category %q", s)
}

// HasRoleBreakdown reports whether records of the category carry a role.
func (c Category) HasRoleBreakdown() bool {
	return c == Labour || c == ProfessionalServices
}

// Record is a single cost entry as seen by the aggregation. Amount is the
// category's money field (totalCost, amount, contractValue or totalFees).
type Record struct {
	Id             int
	PhaseId        int
	Category       Category
	Status         string
	Amount         decimal.Decimal
	IsIndirectCost bool
	Role           string
	RecordedAt     time.Time
	DeletedAt      *time.Time
}

// Counts reports whether the record contributes to actual spend.
func (r Record) Counts() bool {
	if r.DeletedAt != nil {
		return false
	}
	if r.Category == Expenses && r.IsIndirectCost {
		return false
	}
	return IsApproved(r.Category, r.Status)
}

type Tally struct {
	Category Category
	Count    int
	Total    decimal.Decimal
}

// MonthlyAmount is the approved total recorded in one calendar month.
// Month is the first instant of the month in UTC.
type MonthlyAmount struct {
	Month  time.Time
	Amount decimal.Decimal
}

type RoleBreakdown struct {
	Category Category
	Count    int
	Total    decimal.Decimal
	ByRole   map[string]decimal.Decimal
}

// Tally returns the count and total with the same figures as the breakdown.
func (b RoleBreakdown) Tally() Tally {
	return Tally{Category: b.Category, Count: b.Count, Total: b.Total}
}
