// Package settings_repo persists the singleton inventory policy row.
package settings_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/domain/settings"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// SettingsRepo implements settings.Repository.
type SettingsRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(txm *postgres.TxManager) *SettingsRepo {
	return &SettingsRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Load reads the policy row. found is false on a fresh database.
func (r *SettingsRepo) Load(ctx context.Context) (settings.InventorySettings, bool, error) {
	var s settings.InventorySettings

	sql, args, err := r.builder.
		Select("write_off_method", "lot_tracking", "expiry_rule").
		From(postgres.TableSettings).
		Where(squirrel.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return s, false, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return s, false, nil
		}
		return s, false, fmt.Errorf("load settings: %w", err)
	}
	return s, true, nil
}

// Save upserts the policy row.
func (r *SettingsRepo) Save(ctx context.Context, s settings.InventorySettings) error {
	sql, args, err := r.builder.
		Insert(postgres.TableSettings).
		Columns("id", "write_off_method", "lot_tracking", "expiry_rule", "updated_at").
		Values(1, s.WriteOffMethod, s.LotTracking, s.ExpiryRule, squirrel.Expr("NOW()")).
		Suffix("ON CONFLICT (id) DO UPDATE SET " +
			"write_off_method = EXCLUDED.write_off_method, " +
			"lot_tracking = EXCLUDED.lot_tracking, " +
			"expiry_rule = EXCLUDED.expiry_rule, " +
			"updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
