package costing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/documents/goods_receipt"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/pkg/logger"
)

// ReceiptItem is one received material line.
type ReceiptItem struct {
	MaterialID id.ID
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	ExpiryDate *time.Time
}

// ReceiptInput describes a goods receipt.
type ReceiptInput struct {
	SupplierID   id.ID
	ReceiptDate  time.Time
	Items        []ReceiptItem
	DeliveryCost *decimal.Decimal
	Note         string
}

// ReceiptResult is what a registered receipt produced.
type ReceiptResult struct {
	Receipt   *goods_receipt.GoodsReceipt
	Movements []entity.StockMovement
	Lots      []entity.MaterialLot
}

// RegisterReceipt stores the receipt, creates one lot per item when lots
// are in use and appends one IN movement per item at its unit price.
// All items commit together.
func (e *Engine) RegisterReceipt(ctx context.Context, in ReceiptInput) (*ReceiptResult, error) {
	doc := goods_receipt.NewGoodsReceipt(in.SupplierID, in.ReceiptDate, in.DeliveryCost, in.Note)
	doc.CreatedBy = appctx.GetUserID(ctx)
	for _, item := range in.Items {
		doc.AddItem(item.MaterialID, item.Quantity, item.UnitPrice, item.ExpiryDate)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "RegisterReceipt",
		attribute.String("receipt.id", doc.ID.String()),
		attribute.Int("receipt.items", len(doc.Items)),
	)
	defer span.End()

	policy, err := e.policy(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReceiptResult{Receipt: doc}
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.ledger.Lock(ctx, doc.MaterialIDs()...); err != nil {
			return err
		}

		number, err := numerator.Assign(ctx, e.numbers, numerator.ReceiptNumbers, doc.ReceiptDate)
		if err != nil {
			return err
		}
		doc.Number = number

		if err := e.receipts.Create(ctx, doc); err != nil {
			return err
		}

		for _, item := range doc.Items {
			if policy.UsesLots() {
				lot := entity.NewMaterialLot(item.MaterialID, item.ID, item.Quantity, item.UnitPrice, doc.ReceiptDate, item.ExpiryDate)
				if err := e.lots.Receive(ctx, lot); err != nil {
					return err
				}
				result.Lots = append(result.Lots, lot)
			}

			movement, _, err := e.ledger.RecordMovement(ctx, ledger.MovementInput{
				MaterialID: item.MaterialID,
				Type:       entity.MovementIn,
				Quantity:   item.Quantity,
				UnitCost:   item.UnitPrice,
				Source:     entity.StockEntry(doc.ID),
				Date:       doc.ReceiptDate,
				Note:       doc.Note,
			})
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, movement)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "goods receipt registered",
		"receipt_id", doc.ID,
		"number", doc.Number,
		"supplier_id", doc.SupplierID,
		"items", len(doc.Items),
		"lots", len(result.Lots),
		"total_amount", doc.TotalAmount,
	)
	audit.Emit(ctx, e.audit, audit.Entry{
		EntityType: "goods_receipt",
		EntityID:   doc.ID,
		Action:     audit.ActionCreate,
		Changes: map[string]any{
			"supplier_id":  doc.SupplierID,
			"items":        len(doc.Items),
			"total_amount": doc.TotalAmount.String(),
		},
	})

	return result, nil
}
