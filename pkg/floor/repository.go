package floor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var ErrFloorNotFound = fmt.Errorf("floor %w", apperrors.ErrNotFound)
var ErrPhaseNotFound = fmt.Errorf("phase %w", apperrors.ErrNotFound)

// ErrAllocationExceedsBudget is a validation failure: the phase budget would be over-allocated.
var ErrAllocationExceedsBudget = fmt.Errorf("%w: floor allocations exceed phase budget", apperrors.ErrValidation)

type Repository interface {
	// ListForPhase returns the project's live floors with their allocation for the phase.
	ListForPhase(ctx context.Context, projectId, phaseId int) ([]Floor, error)
	// ReplaceAllocations upserts allocations in one transaction. Together with the
	// allocations already stored for other floors they must not exceed ceiling.
	ReplaceAllocations(ctx context.Context, phaseId int, ceiling decimal.Decimal, allocations []FloorAllocation) ([]Floor, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) ListForPhase(ctx context.Context, projectId, phaseId int) ([]Floor, error) {
	query := `SELECT f.id, f.project_id, f.floor_number, f.name, f.floor_type, f.area, f.deleted_at,
			a.total, a.materials, a.labour, a.equipment, a.subcontractors
		FROM floors f
		LEFT JOIN floor_budget_allocations a ON a.floor_id = f.id AND a.phase_id = $2
		WHERE f.project_id = $1 AND f.deleted_at IS NULL
		ORDER BY f.floor_number, f.id`

	rows, err := r.db.Query(ctx, query, projectId, phaseId)
	if err != nil {
		err = fmt.Errorf("could not list floors of project %d: %w", projectId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	floors := make([]Floor, 0)
	for rows.Next() {
		f, err := scanFloor(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan floor: %w", err)
		}
		floors = append(floors, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read floors: %w", err)
	}
	return floors, nil
}

func (r *RepositoryImpl) ReplaceAllocations(ctx context.Context, phaseId int, ceiling decimal.Decimal, allocations []FloorAllocation) ([]Floor, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Serializes allocation writes for the phase.
	var projectId int
	err = tx.QueryRow(ctx, `SELECT project_id FROM phases WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, phaseId).Scan(&projectId)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPhaseNotFound
		}
		return nil, fmt.Errorf("could not lock phase %d: %w", phaseId, err)
	}

	floorIds := make([]int, 0, len(allocations))
	submitted := decimal.Zero
	for _, a := range allocations {
		floorIds = append(floorIds, a.FloorId)
		submitted = submitted.Add(a.Allocation.Total)
	}

	var owned int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM floors WHERE id = ANY($1) AND project_id = $2 AND deleted_at IS NULL`,
		floorIds, projectId).Scan(&owned)
	if err != nil {
		return nil, fmt.Errorf("could not verify floors: %w", err)
	}
	if owned != len(floorIds) {
		return nil, ErrFloorNotFound
	}

	var others decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT COALESCE(SUM(a.total), 0)
		FROM floor_budget_allocations a
		JOIN floors f ON f.id = a.floor_id AND f.deleted_at IS NULL
		WHERE a.phase_id = $1 AND NOT (a.floor_id = ANY($2))`, phaseId, floorIds).Scan(&others)
	if err != nil {
		return nil, fmt.Errorf("could not sum existing allocations: %w", err)
	}
	if submitted.Add(others).GreaterThan(ceiling) {
		log.Debugf("phase %d: submitted %s plus stored %s exceeds %s", phaseId, submitted, others, ceiling)
		return nil, fmt.Errorf("%w: %s allocated against a budget of %s", ErrAllocationExceedsBudget, submitted.Add(others), ceiling)
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, a := range allocations {
		batch.Queue(`INSERT INTO floor_budget_allocations (floor_id, phase_id, total, materials, labour, equipment, subcontractors, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (floor_id, phase_id) DO UPDATE SET
				total = EXCLUDED.total,
				materials = EXCLUDED.materials,
				labour = EXCLUDED.labour,
				equipment = EXCLUDED.equipment,
				subcontractors = EXCLUDED.subcontractors,
				updated_at = EXCLUDED.updated_at`,
			a.FloorId, phaseId, a.Allocation.Total, a.Allocation.Materials, a.Allocation.Labour,
			a.Allocation.Equipment, a.Allocation.Subcontractors, now)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		err = fmt.Errorf("could not store floor allocations for phase %d: %w", phaseId, err)
		log.Error(err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("could not commit floor allocations: %w", err)
	}

	return r.ListForPhase(ctx, projectId, phaseId)
}

func scanFloor(row pgx.Row) (Floor, error) {
	var f Floor
	var floorType string
	var area decimal.NullDecimal
	var total, materials, labour, equipment, subcontractors decimal.NullDecimal
	err := row.Scan(&f.Id, &f.ProjectId, &f.FloorNumber, &f.Name, &floorType, &area, &f.DeletedAt,
		&total, &materials, &labour, &equipment, &subcontractors)
	if err != nil {
		return Floor{}, err
	}
	f.Type = FloorType(floorType)
	if area.Valid {
		f.Area = &area.Decimal
	}
	if total.Valid {
		f.Allocation = &Allocation{
			Total:          total.Decimal,
			Materials:      materials.Decimal,
			Labour:         labour.Decimal,
			Equipment:      equipment.Decimal,
			Subcontractors: subcontractors.Decimal,
		}
	}
	return f, nil
}
