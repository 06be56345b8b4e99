package allocation

import (
	"sort"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/pkg/floor"
	"github.com/shopspring/decimal"
)

type Strategy string

const (
	Even     Strategy = "even"
	Weighted Strategy = "weighted"
	Manual   Strategy = "manual"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Even, Weighted, Manual:
		return Strategy(s), nil
	}
	return "", apperrors.Validation("unknown allocation strategy %q", s)
}

// typeMultipliers weight floors without a surveyed area.
var typeMultipliers = map[floor.FloorType]decimal.Decimal{
	floor.Basement: decimal.RequireFromString("1.25"),
	floor.Podium:   decimal.RequireFromString("1.15"),
	floor.Ground:   decimal.RequireFromString("1.10"),
	floor.Typical:  decimal.NewFromInt(1),
	floor.Roof:     decimal.RequireFromString("0.60"),
	floor.Other:    decimal.NewFromInt(1),
}

func typeMultiplier(t floor.FloorType) decimal.Decimal {
	if m, ok := typeMultipliers[t]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// FloorWeights weights by area when every floor has a positive area, otherwise by floor type.
func FloorWeights(floors []floor.Floor) []decimal.Decimal {
	weights := make([]decimal.Decimal, len(floors))
	allSurveyed := len(floors) > 0
	for _, f := range floors {
		if f.Area == nil || !f.Area.IsPositive() {
			allSurveyed = false
			break
		}
	}
	for i, f := range floors {
		if allSurveyed {
			weights[i] = *f.Area
		} else {
			weights[i] = typeMultiplier(f.Type)
		}
	}
	return weights
}

// SplitEven gives every one of n shares budget/n truncated to scale decimal places.
// The truncated remainder stays unallocated, so the shares fall short of the
// budget by less than n minor units.
func SplitEven(budget decimal.Decimal, n int, scale int32) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	share := budget.Div(decimal.NewFromInt(int64(n))).Truncate(scale)
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = share
	}
	return out
}

// SplitWeighted distributes budget proportionally to weights using the largest
// remainder method over minor units. The shares sum to budget truncated to scale.
func SplitWeighted(budget decimal.Decimal, weights []decimal.Decimal, scale int32) ([]decimal.Decimal, error) {
	if len(weights) == 0 {
		return nil, nil
	}
	if budget.IsNegative() {
		return nil, apperrors.Validation("cannot split a negative budget %s", budget)
	}
	totalWeight := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, apperrors.Validation("negative weight %s", w)
		}
		totalWeight = totalWeight.Add(w)
	}
	if !totalWeight.IsPositive() {
		return nil, apperrors.Validation("weights sum to zero")
	}

	units := budget.Shift(scale).Truncate(0)
	shares := make([]decimal.Decimal, len(weights))
	remainders := make([]decimal.Decimal, len(weights))
	assigned := decimal.Zero
	for i, w := range weights {
		exact := units.Mul(w).Div(totalWeight)
		shares[i] = exact.Floor()
		remainders[i] = exact.Sub(shares[i])
		assigned = assigned.Add(shares[i])
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	leftover := units.Sub(assigned).IntPart()
	for k := int64(0); k < leftover; k++ {
		i := order[k%int64(len(order))]
		shares[i] = shares[i].Add(decimal.NewFromInt(1))
	}

	for i := range shares {
		shares[i] = shares[i].Shift(-scale)
	}
	return shares, nil
}
