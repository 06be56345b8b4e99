package financials

import (
	"strings"
	"testing"
	"time"

	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCsvSummaryRenderer_RenderSummary(t *testing.T) {
	t.Run("should render one row per month and the totals", func(t *testing.T) {
		// given
		summary := Summary{
			BudgetTotal:    dec("1000"),
			ActualTotal:    dec("350.5"),
			CommittedTotal: dec("100"),
			Remaining:      dec("549.5"),
			ActualByCategory: map[cost.Category]decimal.Decimal{
				cost.Materials: dec("300"),
				cost.Labour:    dec("50.5"),
			},
			Trends: []TrendPoint{
				{Month: month(2026, time.January), ByCategory: map[cost.Category]decimal.Decimal{cost.Materials: dec("300")}, Total: dec("300"), Cumulative: dec("300")},
				{Month: month(2026, time.February), ByCategory: map[cost.Category]decimal.Decimal{cost.Labour: dec("50.5")}, Total: dec("50.5"), Cumulative: dec("350.5")},
			},
		}

		// when
		out, err := NewCsvSummaryRenderer(2).RenderSummary(summary)

		// then
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 7)
		assert.Equal(t, ",materials,expenses,labour,equipment,subcontractors,professionalServices,SUM,Cumulative", lines[0])
		assert.Equal(t, "2026-01,300.00,0.00,0.00,0.00,0.00,0.00,300.00,300.00", lines[1])
		assert.Equal(t, "2026-02,0.00,0.00,50.50,0.00,0.00,0.00,50.50,350.50", lines[2])
		assert.Equal(t, "Total,300.00,0.00,50.50,0.00,0.00,0.00,350.50,", lines[3])
		assert.Equal(t, "Committed,,,,,,,100.00,", lines[4])
		assert.Equal(t, "Budget,,,,,,,1000.00,", lines[5])
		assert.Equal(t, "Remaining,,,,,,,549.50,", lines[6])
	})

	t.Run("should render only the header and totals without trends", func(t *testing.T) {
		out, err := NewCsvSummaryRenderer(2).RenderSummary(Summary{})

		require.NoError(t, err)
		assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)
	})
}
