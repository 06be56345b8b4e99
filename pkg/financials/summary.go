package financials

import (
	"sort"
	"time"

	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/shopspring/decimal"
)

const percentScale = 2

var hundred = decimal.NewFromInt(100)

// Inputs are the raw figures a summary is assembled from.
type Inputs struct {
	Budget    decimal.Decimal
	Tallies   []cost.Tally
	Committed decimal.Decimal
	Estimated decimal.Decimal
	Monthly   map[cost.Category][]cost.MonthlyAmount
}

type Summary struct {
	PhaseId        int
	BudgetTotal    decimal.Decimal
	ActualTotal    decimal.Decimal
	CommittedTotal decimal.Decimal
	EstimatedTotal decimal.Decimal
	// Remaining is budget minus actual minus committed, never below zero.
	Remaining          decimal.Decimal
	Variance           decimal.Decimal
	VariancePercentage decimal.Decimal
	// UtilizationPercentage is zero when there is no budget. UtilizationUnbounded
	// is then set if money was spent anyway.
	UtilizationPercentage decimal.Decimal
	UtilizationUnbounded  bool
	ForecastAtCompletion  decimal.Decimal
	ForecastVariance      decimal.Decimal
	ActualByCategory      map[cost.Category]decimal.Decimal
	// CategoryBreakdown holds every category, largest total first.
	CategoryBreakdown []cost.Tally
	Trends            []TrendPoint
	CalculatedAt      time.Time
}

type TrendPoint struct {
	Month      time.Time
	ByCategory map[cost.Category]decimal.Decimal
	Total      decimal.Decimal
	Cumulative decimal.Decimal
}

// Assemble derives a summary from its inputs. It performs no I/O.
func Assemble(in Inputs) Summary {
	byCategory := make(map[cost.Category]cost.Tally, len(cost.Categories))
	for _, t := range in.Tallies {
		existing := byCategory[t.Category]
		byCategory[t.Category] = cost.Tally{
			Category: t.Category,
			Count:    existing.Count + t.Count,
			Total:    existing.Total.Add(t.Total),
		}
	}

	actual := decimal.Zero
	actualByCategory := make(map[cost.Category]decimal.Decimal, len(cost.Categories))
	breakdown := make([]cost.Tally, 0, len(cost.Categories))
	for _, c := range cost.Categories {
		t := byCategory[c]
		t.Category = c
		actual = actual.Add(t.Total)
		actualByCategory[c] = t.Total
		breakdown = append(breakdown, t)
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Total.GreaterThan(breakdown[j].Total)
	})

	budget, committed, estimated := in.Budget, in.Committed, in.Estimated

	remaining := budget.Sub(actual).Sub(committed)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	variance := actual.Sub(budget)

	s := Summary{
		BudgetTotal:           budget,
		ActualTotal:           actual,
		CommittedTotal:        committed,
		EstimatedTotal:        estimated,
		Remaining:             remaining,
		Variance:              variance,
		VariancePercentage:    decimal.Zero,
		UtilizationPercentage: decimal.Zero,
		ForecastAtCompletion:  actual.Add(committed).Add(estimated),
		ActualByCategory:      actualByCategory,
		CategoryBreakdown:     breakdown,
		Trends:                trends(in.Monthly),
	}
	s.ForecastVariance = s.ForecastAtCompletion.Sub(budget)

	if budget.IsPositive() {
		s.UtilizationPercentage = actual.Div(budget).Mul(hundred).Round(percentScale)
		s.VariancePercentage = variance.Div(budget).Mul(hundred).Round(percentScale)
	} else {
		s.UtilizationUnbounded = actual.IsPositive()
	}
	return s
}

func trends(monthly map[cost.Category][]cost.MonthlyAmount) []TrendPoint {
	points := map[time.Time]*TrendPoint{}
	for _, c := range cost.Categories {
		for _, m := range monthly[c] {
			p, ok := points[m.Month]
			if !ok {
				p = &TrendPoint{Month: m.Month, ByCategory: map[cost.Category]decimal.Decimal{}, Total: decimal.Zero}
				points[m.Month] = p
			}
			p.ByCategory[c] = p.ByCategory[c].Add(m.Amount)
			p.Total = p.Total.Add(m.Amount)
		}
	}

	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })

	running := decimal.Zero
	for i := range out {
		running = running.Add(out[i].Total)
		out[i].Cumulative = running
	}
	return out
}

// mergeInputs combines several phases into project-level inputs.
func mergeInputs(all []Inputs) Inputs {
	merged := Inputs{
		Budget:    decimal.Zero,
		Committed: decimal.Zero,
		Estimated: decimal.Zero,
		Monthly:   map[cost.Category][]cost.MonthlyAmount{},
	}
	for _, in := range all {
		merged.Budget = merged.Budget.Add(in.Budget)
		merged.Committed = merged.Committed.Add(in.Committed)
		merged.Estimated = merged.Estimated.Add(in.Estimated)
		merged.Tallies = append(merged.Tallies, in.Tallies...)
		for c, months := range in.Monthly {
			merged.Monthly[c] = append(merged.Monthly[c], months...)
		}
	}
	return merged
}
