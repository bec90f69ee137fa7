package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/documents/service_sale"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// ServiceSaleRepo implements service_sale.Repository.
type ServiceSaleRepo struct {
	*BaseDocumentRepo[service_sale.ServiceSale]
	snapshotCols []string
}

// NewServiceSaleRepo creates a new service sale repository.
func NewServiceSaleRepo(txm *postgres.TxManager) *ServiceSaleRepo {
	return &ServiceSaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[service_sale.ServiceSale](txm, postgres.TableSales, "service_sale"),
		snapshotCols:     postgres.ExtractDBColumns[service_sale.MaterialSnapshot](),
	}
}

// Create stores the sale header and copies its material snapshots.
func (r *ServiceSaleRepo) Create(ctx context.Context, sale *service_sale.ServiceSale) error {
	if err := r.BaseDocumentRepo.Create(ctx, sale); err != nil {
		return err
	}

	inserter := postgres.NewBatchInserter(r.TxManager())
	rows := postgres.RowsFor(sale.Snapshots, r.snapshotCols)
	if _, err := inserter.CopyFromSlice(ctx, postgres.TableSaleMaterials, r.snapshotCols, rows); err != nil {
		return fmt.Errorf("copy sale materials: %w", err)
	}
	return nil
}

// GetByID returns the sale with snapshots.
func (r *ServiceSaleRepo) GetByID(ctx context.Context, saleID id.ID) (*service_sale.ServiceSale, error) {
	sale, err := r.BaseDocumentRepo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return sale, r.loadSnapshots(ctx, sale)
}

// GetForUpdate returns the locked sale with snapshots.
func (r *ServiceSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*service_sale.ServiceSale, error) {
	sale, err := r.BaseDocumentRepo.GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return sale, r.loadSnapshots(ctx, sale)
}

func (r *ServiceSaleRepo) loadSnapshots(ctx context.Context, sale *service_sale.ServiceSale) error {
	sql, args, err := r.Builder().
		Select(r.snapshotCols...).
		From(postgres.TableSaleMaterials).
		Where(squirrel.Eq{"sale_id": sale.ID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.Querier(ctx), &sale.Snapshots, sql, args...); err != nil {
		return fmt.Errorf("select sale materials: %w", err)
	}
	return nil
}
