package commitment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Calculator derives committed and estimated cost from purchase orders and material requests.
type Calculator struct {
	repo Repository
}

func NewCalculator(repo Repository) *Calculator {
	return &Calculator{repo: repo}
}

// CommittedCost sums open purchase orders. Only the order status decides
// inclusion; the state of linked material records is not consulted.
func (c *Calculator) CommittedCost(ctx context.Context, phaseId int) (decimal.Decimal, error) {
	orders, err := c.repo.ListOpenPurchaseOrders(ctx, phaseId)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, po := range orders {
		total = total.Add(po.TotalAmount)
	}
	return total, nil
}

func (c *Calculator) EstimatedCost(ctx context.Context, phaseId int) (decimal.Decimal, error) {
	requests, err := c.repo.ListPipelineRequests(ctx, phaseId)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, mr := range requests {
		total = total.Add(mr.Estimate())
	}
	return total, nil
}
