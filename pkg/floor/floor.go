package floor

import (
	"time"

	"github.com/shopspring/decimal"
)

type FloorType string

const (
	Basement FloorType = "basement"
	Ground   FloorType = "ground"
	Podium   FloorType = "podium"
	Typical  FloorType = "typical"
	Roof     FloorType = "roof"
	Other    FloorType = "other"
)

type Floor struct {
	Id          int
	ProjectId   int
	FloorNumber int
	Name        string
	Type        FloorType
	// Area in square metres, nil when not surveyed.
	Area *decimal.Decimal
	// Allocation is the floor's budget for the phase it was loaded for, nil when unallocated.
	Allocation *Allocation
	DeletedAt  *time.Time
}

type Allocation struct {
	Total          decimal.Decimal
	Materials      decimal.Decimal
	Labour         decimal.Decimal
	Equipment      decimal.Decimal
	Subcontractors decimal.Decimal
}

// SubTotal is the part of the allocation assigned to a category.
func (a Allocation) SubTotal() decimal.Decimal {
	return a.Materials.Add(a.Labour).Add(a.Equipment).Add(a.Subcontractors)
}

type FloorAllocation struct {
	FloorId    int
	Allocation Allocation
}
