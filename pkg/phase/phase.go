package phase

import (
	"time"

	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/shopspring/decimal"
)

type BudgetAllocation struct {
	Total      decimal.Decimal
	ByCategory map[cost.Category]decimal.Decimal
}

// EffectiveTotal is Total, or the category sum when no total was set.
func (b BudgetAllocation) EffectiveTotal() decimal.Decimal {
	if b.Total.IsPositive() {
		return b.Total
	}
	sum := decimal.Zero
	for _, c := range cost.Categories {
		sum = sum.Add(b.ByCategory[c])
	}
	return sum
}

type ActualSpending struct {
	Total      decimal.Decimal
	ByCategory map[cost.Category]decimal.Decimal
}

// FinancialStates is the cached snapshot written by the last recalculation.
type FinancialStates struct {
	Budgeted  decimal.Decimal
	Estimated decimal.Decimal
	Committed decimal.Decimal
	Actual    decimal.Decimal
	Remaining decimal.Decimal
}

type ProfessionalServicesSnapshot struct {
	Count      int
	TotalFees  decimal.Decimal
	FeesByRole map[string]decimal.Decimal
}

type Phase struct {
	Id                   int
	ProjectId            int
	Name                 string
	BudgetAllocation     BudgetAllocation
	ActualSpending       ActualSpending
	FinancialStates      *FinancialStates
	ProfessionalServices *ProfessionalServicesSnapshot
	CategoryBreakdown    []cost.Tally
	// Version increments on every cache write.
	Version            int
	LastRecalculatedAt *time.Time
	DeletedAt          *time.Time
}

// FinancialSnapshot is everything a recalculation writes back onto the phase.
type FinancialSnapshot struct {
	ActualSpending       ActualSpending
	FinancialStates      FinancialStates
	ProfessionalServices ProfessionalServicesSnapshot
	CategoryBreakdown    []cost.Tally
	RecalculatedAt       time.Time
}
