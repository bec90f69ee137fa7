// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// LedgerRepo implements ledger.Repository over cat_materials and
// reg_stock_movements.
type LedgerRepo struct {
	txm          *postgres.TxManager
	builder      squirrel.StatementBuilderType
	materialCols []string
	movementCols []string
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:          txm,
		builder:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		materialCols: postgres.ExtractDBColumns[entity.Material](),
		movementCols: postgres.ExtractDBColumns[entity.StockMovement](),
	}
}

// LockMaterial selects the material row FOR UPDATE.
func (r *LedgerRepo) LockMaterial(ctx context.Context, materialID id.ID) (entity.Material, error) {
	return r.getMaterial(ctx, materialID, true)
}

// GetMaterial reads the material without locking.
func (r *LedgerRepo) GetMaterial(ctx context.Context, materialID id.ID) (entity.Material, error) {
	return r.getMaterial(ctx, materialID, false)
}

func (r *LedgerRepo) getMaterial(ctx context.Context, materialID id.ID, forUpdate bool) (entity.Material, error) {
	var m entity.Material

	q := r.builder.Select(r.materialCols...).
		From(postgres.TableMaterials).
		Where(squirrel.Eq{"id": materialID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return m, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return m, apperror.NewNotFound("material", materialID.String())
		}
		return m, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

// ListMaterialIDs returns all material ids in key order.
func (r *LedgerRepo) ListMaterialIDs(ctx context.Context) ([]id.ID, error) {
	sql, args, err := r.builder.Select("id").From(postgres.TableMaterials).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("select material ids: %w", err)
	}
	return ids, nil
}

// UpdateAverageCost writes the cached weighted-average cost.
func (r *LedgerRepo) UpdateAverageCost(ctx context.Context, materialID id.ID, cost decimal.Decimal) error {
	sql, args, err := r.builder.Update(postgres.TableMaterials).
		Set("average_cost", cost).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": materialID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update average cost: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("material", materialID.String())
	}
	return nil
}

// InsertMovement appends a journal entry.
func (r *LedgerRepo) InsertMovement(ctx context.Context, m entity.StockMovement) error {
	data := postgres.PickColumns(postgres.StructToMap(m), r.movementCols)

	sql, args, err := r.builder.Insert(postgres.TableMovements).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns the material's journal in posting order.
func (r *LedgerRepo) ListMovements(ctx context.Context, materialID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(r.movementCols...).
		From(postgres.TableMovements).
		Where(squirrel.Eq{"material_id": materialID}).
		OrderBy("movement_date", "created_at", "id")

	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"movement_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"movement_date": *filter.To})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectMovements(ctx, q)
}

// ListActiveOut returns unreversed OUT movements of a source.
func (r *LedgerRepo) ListActiveOut(ctx context.Context, source entity.SourceRef) ([]entity.StockMovement, error) {
	q := r.builder.Select(r.movementCols...).
		From(postgres.TableMovements).
		Where(squirrel.Eq{
			"source_type": source.Type,
			"source_id":   source.ID,
			"type":        entity.MovementOut,
			"reversed_at": nil,
		}).
		OrderBy("created_at", "id")

	return r.selectMovements(ctx, q)
}

func (r *LedgerRepo) selectMovements(ctx context.Context, q squirrel.SelectBuilder) ([]entity.StockMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// MarkReversed stamps reversed_at on a still-active OUT movement.
func (r *LedgerRepo) MarkReversed(ctx context.Context, movementID id.ID, at time.Time) error {
	sql, args, err := r.builder.Update(postgres.TableMovements).
		Set("reversed_at", at).
		Where(squirrel.Eq{"id": movementID, "reversed_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark movement reversed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock_movement", movementID.String())
	}
	return nil
}
