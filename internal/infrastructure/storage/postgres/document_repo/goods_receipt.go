package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/documents/goods_receipt"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// GoodsReceiptRepo implements goods_receipt.Repository.
type GoodsReceiptRepo struct {
	*BaseDocumentRepo[goods_receipt.GoodsReceipt]
	itemCols []string
}

// NewGoodsReceiptRepo creates a new goods receipt repository.
func NewGoodsReceiptRepo(txm *postgres.TxManager) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[goods_receipt.GoodsReceipt](txm, postgres.TableReceipts, "goods_receipt"),
		itemCols:         postgres.ExtractDBColumns[goods_receipt.Item](),
	}
}

// Create stores the header and copies all items.
func (r *GoodsReceiptRepo) Create(ctx context.Context, doc *goods_receipt.GoodsReceipt) error {
	if err := r.BaseDocumentRepo.Create(ctx, doc); err != nil {
		return err
	}

	inserter := postgres.NewBatchInserter(r.TxManager())
	rows := postgres.RowsFor(doc.Items, r.itemCols)
	if _, err := inserter.CopyFromSlice(ctx, postgres.TableReceiptItems, r.itemCols, rows); err != nil {
		return fmt.Errorf("copy receipt items: %w", err)
	}
	return nil
}

// GetByID returns the receipt with its items.
func (r *GoodsReceiptRepo) GetByID(ctx context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	doc, err := r.BaseDocumentRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.Builder().
		Select(r.itemCols...).
		From(postgres.TableReceiptItems).
		Where(squirrel.Eq{"receipt_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, r.Querier(ctx), &doc.Items, sql, args...); err != nil {
		return nil, fmt.Errorf("select receipt items: %w", err)
	}
	return doc, nil
}
