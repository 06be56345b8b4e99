package financials

import (
	"bytes"
	"encoding/csv"

	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type SummaryRenderer interface {
	RenderSummary(summary Summary) (string, error)
}

// CsvSummaryRenderer lays the monthly trends out as one row per month and one
// column per category, followed by total, budget and remaining rows.
type CsvSummaryRenderer struct {
	scale int32
}

func NewCsvSummaryRenderer(currencyScale int32) *CsvSummaryRenderer {
	return &CsvSummaryRenderer{scale: currencyScale}
}

func (r *CsvSummaryRenderer) RenderSummary(summary Summary) (string, error) {
	width := len(cost.Categories) + 3

	header := make([]string, 0, width)
	header = append(header, "")
	for _, c := range cost.Categories {
		header = append(header, string(c))
	}
	header = append(header, "SUM", "Cumulative")

	data := make([][]string, 0, len(summary.Trends)+4)
	data = append(data, header)
	for _, point := range summary.Trends {
		row := make([]string, 0, width)
		row = append(row, point.Month.Format("2006-01"))
		for _, c := range cost.Categories {
			row = append(row, r.amount(point.ByCategory[c]))
		}
		row = append(row, r.amount(point.Total), r.amount(point.Cumulative))
		data = append(data, row)
	}

	totals := make([]string, 0, width)
	totals = append(totals, "Total")
	for _, c := range cost.Categories {
		totals = append(totals, r.amount(summary.ActualByCategory[c]))
	}
	totals = append(totals, r.amount(summary.ActualTotal), "")
	data = append(data,
		totals,
		r.summaryRow("Committed", summary.CommittedTotal, width),
		r.summaryRow("Budget", summary.BudgetTotal, width),
		r.summaryRow("Remaining", summary.Remaining, width),
	)

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

// summaryRow puts a single figure in the SUM column.
func (r *CsvSummaryRenderer) summaryRow(label string, amount decimal.Decimal, width int) []string {
	row := make([]string, width)
	row[0] = label
	row[width-2] = r.amount(amount)
	return row
}

func (r *CsvSummaryRenderer) amount(d decimal.Decimal) string {
	return d.StringFixed(r.scale)
}
