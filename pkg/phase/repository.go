package phase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/pkg/cost"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrPhaseNotFound = fmt.Errorf("phase %w", apperrors.ErrNotFound)
var ErrProjectNotFound = fmt.Errorf("project %w", apperrors.ErrNotFound)

// ErrStaleVersion is returned when the phase was rewritten since it was read.
var ErrStaleVersion = errors.New("phase version is stale")

type Repository interface {
	GetPhase(ctx context.Context, phaseId int) (Phase, error)
	ListByProject(ctx context.Context, projectId int) ([]Phase, error)
	UpdateFinancials(ctx context.Context, phaseId int, expectedVersion int, snapshot FinancialSnapshot) (Phase, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const phaseColumns = `id, project_id, name, budget_allocation, actual_spending, financial_states,
	professional_services, category_breakdown, version, last_recalculated_at, deleted_at`

func (r *RepositoryImpl) GetPhase(ctx context.Context, phaseId int) (Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanPhase(r.db.QueryRow(ctx, query, phaseId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Phase{}, ErrPhaseNotFound
		}
		err = fmt.Errorf("could not load phase %d: %w", phaseId, err)
		log.Error(err)
		return Phase{}, err
	}
	return p, nil
}

func (r *RepositoryImpl) ListByProject(ctx context.Context, projectId int) ([]Phase, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND deleted_at IS NULL)`, projectId).Scan(&exists)
	if err != nil {
		err = fmt.Errorf("could not check project %d: %w", projectId, err)
		log.Error(err)
		return nil, err
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	query := `SELECT ` + phaseColumns + ` FROM phases WHERE project_id = $1 AND deleted_at IS NULL ORDER BY id`
	rows, err := r.db.Query(ctx, query, projectId)
	if err != nil {
		err = fmt.Errorf("could not list phases of project %d: %w", projectId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	phases := make([]Phase, 0)
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan phase: %w", err)
		}
		phases = append(phases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read phases: %w", err)
	}
	return phases, nil
}

// UpdateFinancials writes the snapshot only if the stored version still equals
// expectedVersion, and bumps the version.
func (r *RepositoryImpl) UpdateFinancials(ctx context.Context, phaseId int, expectedVersion int, snapshot FinancialSnapshot) (Phase, error) {
	actual, err := json.Marshal(toSpendingDoc(snapshot.ActualSpending.Total, snapshot.ActualSpending.ByCategory))
	if err != nil {
		return Phase{}, err
	}
	states, err := json.Marshal(toStatesDoc(snapshot.FinancialStates))
	if err != nil {
		return Phase{}, err
	}
	services, err := json.Marshal(toServicesDoc(snapshot.ProfessionalServices))
	if err != nil {
		return Phase{}, err
	}
	breakdown, err := json.Marshal(toBreakdownDoc(snapshot.CategoryBreakdown))
	if err != nil {
		return Phase{}, err
	}

	query := `UPDATE phases SET
			actual_spending = $3::jsonb,
			financial_states = $4::jsonb,
			professional_services = $5::jsonb,
			category_breakdown = $6::jsonb,
			last_recalculated_at = $7,
			version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		RETURNING ` + phaseColumns

	p, err := scanPhase(r.db.QueryRow(ctx, query, phaseId, expectedVersion,
		string(actual), string(states), string(services), string(breakdown), snapshot.RecalculatedAt))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("could not update financials of phase %d: %w", phaseId, err)
		log.Error(err)
		return Phase{}, err
	}

	if _, getErr := r.GetPhase(ctx, phaseId); getErr != nil {
		return Phase{}, getErr
	}
	return Phase{}, ErrStaleVersion
}

func scanPhase(row pgx.Row) (Phase, error) {
	var p Phase
	var budgetRaw, actualRaw, statesRaw, servicesRaw, breakdownRaw []byte
	var lastRecalculatedAt, deletedAt *time.Time

	err := row.Scan(&p.Id, &p.ProjectId, &p.Name, &budgetRaw, &actualRaw, &statesRaw,
		&servicesRaw, &breakdownRaw, &p.Version, &lastRecalculatedAt, &deletedAt)
	if err != nil {
		return Phase{}, err
	}
	p.LastRecalculatedAt = lastRecalculatedAt
	p.DeletedAt = deletedAt

	var budget spendingDoc
	if err := unmarshalIfPresent(budgetRaw, &budget); err != nil {
		return Phase{}, fmt.Errorf("budget_allocation: %w", err)
	}
	p.BudgetAllocation = BudgetAllocation{Total: budget.Total, ByCategory: budget.categories()}

	var actual spendingDoc
	if err := unmarshalIfPresent(actualRaw, &actual); err != nil {
		return Phase{}, fmt.Errorf("actual_spending: %w", err)
	}
	p.ActualSpending = ActualSpending{Total: actual.Total, ByCategory: actual.categories()}

	if len(statesRaw) > 0 {
		var doc statesDoc
		if err := json.Unmarshal(statesRaw, &doc); err != nil {
			return Phase{}, fmt.Errorf("financial_states: %w", err)
		}
		states := FinancialStates(doc)
		p.FinancialStates = &states
	}

	if len(servicesRaw) > 0 {
		var doc servicesDoc
		if err := json.Unmarshal(servicesRaw, &doc); err != nil {
			return Phase{}, fmt.Errorf("professional_services: %w", err)
		}
		p.ProfessionalServices = &ProfessionalServicesSnapshot{Count: doc.Count, TotalFees: doc.TotalFees, FeesByRole: doc.FeesByRole}
	}

	var breakdown []tallyDoc
	if err := unmarshalIfPresent(breakdownRaw, &breakdown); err != nil {
		return Phase{}, fmt.Errorf("category_breakdown: %w", err)
	}
	for _, t := range breakdown {
		p.CategoryBreakdown = append(p.CategoryBreakdown, cost.Tally{Category: cost.Category(t.Category), Count: t.Count, Total: t.Total})
	}

	return p, nil
}

func unmarshalIfPresent(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// Storage shapes of the JSONB columns.

type spendingDoc struct {
	Total      decimal.Decimal            `json:"total"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
}

func (d spendingDoc) categories() map[cost.Category]decimal.Decimal {
	out := make(map[cost.Category]decimal.Decimal, len(d.ByCategory))
	for k, v := range d.ByCategory {
		out[cost.Category(k)] = v
	}
	return out
}

func toSpendingDoc(total decimal.Decimal, byCategory map[cost.Category]decimal.Decimal) spendingDoc {
	doc := spendingDoc{Total: total, ByCategory: make(map[string]decimal.Decimal, len(byCategory))}
	for k, v := range byCategory {
		doc.ByCategory[string(k)] = v
	}
	return doc
}

type statesDoc struct {
	Budgeted  decimal.Decimal `json:"budgeted"`
	Estimated decimal.Decimal `json:"estimated"`
	Committed decimal.Decimal `json:"committed"`
	Actual    decimal.Decimal `json:"actual"`
	Remaining decimal.Decimal `json:"remaining"`
}

func toStatesDoc(s FinancialStates) statesDoc {
	return statesDoc(s)
}

type servicesDoc struct {
	Count      int                        `json:"count"`
	TotalFees  decimal.Decimal            `json:"totalFees"`
	FeesByRole map[string]decimal.Decimal `json:"feesByRole"`
}

func toServicesDoc(s ProfessionalServicesSnapshot) servicesDoc {
	return servicesDoc{Count: s.Count, TotalFees: s.TotalFees, FeesByRole: s.FeesByRole}
}

type tallyDoc struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

func toBreakdownDoc(tallies []cost.Tally) []tallyDoc {
	out := make([]tallyDoc, 0, len(tallies))
	for _, t := range tallies {
		out = append(out, tallyDoc{Category: string(t.Category), Count: t.Count, Total: t.Total})
	}
	return out
}
