package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"clinicstock/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// Table names.
const (
	TableMaterials     = "cat_materials"
	TableMovements     = "reg_stock_movements"
	TableLots          = "reg_material_lots"
	TableReceipts      = "doc_goods_receipts"
	TableReceiptItems  = "doc_goods_receipt_items"
	TableWriteOffs     = "doc_write_offs"
	TableSales         = "doc_service_sales"
	TableSaleMaterials = "doc_service_sale_materials"
	TableSettings      = "sys_inventory_settings"
)

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info(ctx, "database schema applied")
	return nil
}
