package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/lots"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// LotRepo implements lots.Repository over reg_material_lots.
type LotRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	cols    []string
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txm *postgres.TxManager) *LotRepo {
	return &LotRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		cols:    postgres.ExtractDBColumns[entity.MaterialLot](),
	}
}

// orderClause mirrors lots.Sort so the database hands lots back in
// consumption order.
func orderClause(order lots.Order) []string {
	if order == lots.OrderFEFO {
		return []string{"expiry_date ASC NULLS LAST", "received_at", "id"}
	}
	return []string{"received_at", "id"}
}

// Create inserts a lot.
func (r *LotRepo) Create(ctx context.Context, lot entity.MaterialLot) error {
	data := postgres.PickColumns(postgres.StructToMap(lot), r.cols)

	sql, args, err := r.builder.Insert(postgres.TableLots).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

// Get returns a lot by id.
func (r *LotRepo) Get(ctx context.Context, lotID id.ID) (entity.MaterialLot, error) {
	var lot entity.MaterialLot

	sql, args, err := r.builder.Select(r.cols...).
		From(postgres.TableLots).
		Where(squirrel.Eq{"id": lotID}).
		ToSql()
	if err != nil {
		return lot, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &lot, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return lot, apperror.NewNotFound("material_lot", lotID.String())
		}
		return lot, fmt.Errorf("get lot: %w", err)
	}
	return lot, nil
}

// ListAvailable returns lots with remaining quantity in consumption order.
func (r *LotRepo) ListAvailable(ctx context.Context, materialID id.ID, order lots.Order) ([]entity.MaterialLot, error) {
	sql, args, err := r.builder.Select(r.cols...).
		From(postgres.TableLots).
		Where(squirrel.Eq{"material_id": materialID}).
		Where(squirrel.Gt{"quantity": 0}).
		OrderBy(orderClause(order)...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var result []entity.MaterialLot
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &result, sql, args...); err != nil {
		return nil, fmt.Errorf("select lots: %w", err)
	}
	return result, nil
}

// UpdateQuantity sets the remaining quantity.
func (r *LotRepo) UpdateQuantity(ctx context.Context, lotID id.ID, quantity decimal.Decimal) error {
	sql, args, err := r.builder.Update(postgres.TableLots).
		Set("quantity", quantity).
		Where(squirrel.Eq{"id": lotID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update lot quantity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("material_lot", lotID.String())
	}
	return nil
}

// Delete removes a depleted lot.
func (r *LotRepo) Delete(ctx context.Context, lotID id.ID) error {
	sql, args, err := r.builder.Delete(postgres.TableLots).
		Where(squirrel.Eq{"id": lotID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lot: %w", err)
	}
	return nil
}

// SumRemaining totals remaining quantity for one material.
func (r *LotRepo) SumRemaining(ctx context.Context, materialID id.ID) (decimal.Decimal, error) {
	sql, args, err := r.builder.Select("COALESCE(SUM(quantity), 0)").
		From(postgres.TableLots).
		Where(squirrel.Eq{"material_id": materialID}).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("build query: %w", err)
	}

	var total decimal.Decimal
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum lots: %w", err)
	}
	return total, nil
}

type lotTotal struct {
	MaterialID id.ID           `db:"material_id"`
	Total      decimal.Decimal `db:"total"`
}

// SumRemainingByMaterial totals remaining quantity per material.
func (r *LotRepo) SumRemainingByMaterial(ctx context.Context) (map[id.ID]decimal.Decimal, error) {
	sql, args, err := r.builder.Select("material_id", "SUM(quantity) AS total").
		From(postgres.TableLots).
		GroupBy("material_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []lotTotal
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum lots by material: %w", err)
	}

	totals := make(map[id.ID]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.MaterialID] = row.Total
	}
	return totals, nil
}
