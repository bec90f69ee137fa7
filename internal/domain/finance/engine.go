// Package finance orchestrates service sales: it prices the materials a
// service consumed at current average cost, freezes that cost on the
// sale, delegates the stock deduction to the costing engine and derives
// the sale's margin.
package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clinicstock/internal/core/apperror"
	appctx "clinicstock/internal/core/context"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/numerator"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/documents/service_sale"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/pkg/logger"
)

var tracer = otel.Tracer("clinicstock/finance")

// Config holds the engine's collaborators.
type Config struct {
	TxManager tx.Manager
	Costing   *costing.Engine
	Ledger    *ledger.Service
	Sales     service_sale.Repository
	// Audit and Numbers are optional.
	Audit   audit.Recorder
	Numbers numerator.Generator
}

// Engine is the financial engine.
type Engine struct {
	txManager tx.Manager
	costing   *costing.Engine
	ledger    *ledger.Service
	sales     service_sale.Repository
	audit     audit.Recorder
	numbers   numerator.Generator
}

// NewEngine creates a financial engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		txManager: cfg.TxManager,
		costing:   cfg.Costing,
		ledger:    cfg.Ledger,
		sales:     cfg.Sales,
		audit:     cfg.Audit,
		numbers:   cfg.Numbers,
	}
}

// MaterialLine is one material consumed by a sold service.
type MaterialLine struct {
	MaterialID id.ID
	Quantity   decimal.Decimal
	// AssignedAmount is the part of the sale price attributed to this material.
	AssignedAmount decimal.Decimal
}

// SaleInput describes a service sale.
type SaleInput struct {
	ServiceID   id.ID
	SaleDate    time.Time
	TotalPrice  decimal.Decimal
	LaborAmount decimal.Decimal
	Materials   []MaterialLine
	Note        string
}

// SaleResult is a registered sale with the deductions it caused.
type SaleResult struct {
	Sale       *service_sale.ServiceSale
	Deductions []costing.Deduction
}

func validateLines(lines []MaterialLine) error {
	if len(lines) == 0 {
		return apperror.NewValidation("at least one material line is required").
			WithDetail("field", "materials")
	}
	for i, line := range lines {
		if id.IsNil(line.MaterialID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: material is required", i+1)).
				WithDetail("field", "materials")
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1)).
				WithDetail("field", "materials")
		}
		if line.AssignedAmount.IsNegative() {
			return apperror.NewValidation(fmt.Sprintf("line %d: assigned amount must not be negative", i+1)).
				WithDetail("field", "materials")
		}
	}
	return nil
}

// RegisterSale records a sale and deducts its materials.
//
// Lines are priced at the materials' average cost read under their row
// locks, so the frozen cost matches the stock the sale actually removes.
// The sale and its deductions commit or roll back together.
func (e *Engine) RegisterSale(ctx context.Context, in SaleInput) (*SaleResult, error) {
	sale := service_sale.NewServiceSale(in.ServiceID, in.SaleDate, in.TotalPrice, in.LaborAmount, in.Note)
	sale.CreatedBy = appctx.GetUserID(ctx)
	if err := sale.Validate(ctx); err != nil {
		return nil, err
	}
	if err := validateLines(in.Materials); err != nil {
		return nil, err
	}

	assigned := make([]decimal.Decimal, 0, len(in.Materials))
	materialIDs := make([]id.ID, 0, len(in.Materials))
	requested := make(map[id.ID]decimal.Decimal, len(in.Materials))
	for _, line := range in.Materials {
		assigned = append(assigned, line.AssignedAmount)
		materialIDs = append(materialIDs, line.MaterialID)
		requested[line.MaterialID] = requested[line.MaterialID].Add(line.Quantity)
	}
	if err := service_sale.CheckAllocation(sale.TotalPrice, sale.LaborAmount, assigned); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "finance.RegisterSale", trace.WithAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.Int("sale.materials", len(in.Materials)),
	))
	defer span.End()

	result := &SaleResult{Sale: sale}
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		positions, err := e.ledger.Lock(ctx, materialIDs...)
		if err != nil {
			return err
		}

		for _, line := range in.Materials {
			pos := positions[line.MaterialID]
			need := requested[line.MaterialID]
			if need.GreaterThan(pos.Quantity) {
				return apperror.NewInsufficientStock(
					line.MaterialID.String(),
					need.String(),
					pos.Quantity.String(),
					need.Sub(pos.Quantity).String(),
				)
			}
		}

		lines := make([]costing.SaleLine, 0, len(in.Materials))
		for _, line := range in.Materials {
			unitCost := positions[line.MaterialID].AverageCost
			sale.AddSnapshot(line.MaterialID, line.Quantity, unitCost, line.AssignedAmount)
			lines = append(lines, costing.SaleLine{
				MaterialID:       line.MaterialID,
				Quantity:         line.Quantity,
				FallbackUnitCost: unitCost,
			})
		}
		sale.RecalculateMargin()

		if sale.Number, err = numerator.Assign(ctx, e.numbers, numerator.SaleNumbers, sale.SaleDate); err != nil {
			return err
		}
		if err := e.sales.Create(ctx, sale); err != nil {
			return err
		}

		result.Deductions, err = e.costing.DeductForSale(ctx, sale.ID, lines, sale.SaleDate)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "service sale registered",
		"sale_id", sale.ID,
		"number", sale.Number,
		"service_id", sale.ServiceID,
		"total_price", sale.TotalPrice,
		"material_cost", sale.MaterialCostTotal,
		"gross_margin", sale.GrossMargin,
	)
	audit.Emit(ctx, e.audit, audit.Entry{
		EntityType: "service_sale",
		EntityID:   sale.ID,
		Action:     audit.ActionCreate,
		Changes: map[string]any{
			"total_price":   sale.TotalPrice.String(),
			"labor_amount":  sale.LaborAmount.String(),
			"material_cost": sale.MaterialCostTotal.String(),
		},
	})

	return result, nil
}

// SaleUpdate holds the editable fields of a sale. Nil fields are kept.
type SaleUpdate struct {
	TotalPrice  *decimal.Decimal
	LaborAmount *decimal.Decimal
	Note        *string
}

// UpdateSale edits price, labor or note. Margin is recomputed from the
// material cost frozen at sale time.
func (e *Engine) UpdateSale(ctx context.Context, saleID id.ID, upd SaleUpdate) (*service_sale.ServiceSale, error) {
	var sale *service_sale.ServiceSale
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sale, err = e.sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}

		if upd.TotalPrice != nil {
			sale.TotalPrice = *upd.TotalPrice
		}
		if upd.LaborAmount != nil {
			sale.LaborAmount = *upd.LaborAmount
		}
		if upd.Note != nil {
			sale.Note = *upd.Note
		}
		if err := sale.Validate(ctx); err != nil {
			return err
		}

		assigned := make([]decimal.Decimal, 0, len(sale.Snapshots))
		for _, snap := range sale.Snapshots {
			assigned = append(assigned, snap.AssignedAmount)
		}
		if err := service_sale.CheckAllocation(sale.TotalPrice, sale.LaborAmount, assigned); err != nil {
			return err
		}

		sale.RecalculateMargin()
		sale.Touch()
		return e.sales.Update(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	audit.Emit(ctx, e.audit, audit.Entry{
		EntityType: "service_sale",
		EntityID:   sale.ID,
		Action:     audit.ActionUpdate,
		Changes: map[string]any{
			"total_price":  sale.TotalPrice.String(),
			"labor_amount": sale.LaborAmount.String(),
			"gross_margin": sale.GrossMargin.String(),
		},
	})
	return sale, nil
}

// ReverseSaleDeduction returns the sale's materials to stock. The sale
// document itself is kept. Every active OUT movement of the sale is
// reversed, including ones posted through DeductForSale for sales priced
// elsewhere. Reversing twice is a no-op.
func (e *Engine) ReverseSaleDeduction(ctx context.Context, saleID id.ID) (*costing.ReversalResult, error) {
	var (
		result  *costing.ReversalResult
		changed bool
	)
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := e.sales.GetForUpdate(ctx, saleID)
		switch {
		case apperror.IsNotFound(err):
			result, err = e.costing.Reverse(ctx, entity.ServiceSale(saleID))
			changed = err == nil && len(result.Movements) > 0
			return err
		case err != nil:
			return err
		}
		result, changed, err = e.reverseDeduction(ctx, sale)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		audit.Emit(ctx, e.audit, audit.Entry{
			EntityType: "service_sale",
			EntityID:   saleID,
			Action:     audit.ActionReverse,
			Changes:    map[string]any{"movements": len(result.Movements)},
		})
	}
	return result, nil
}

// reverseDeduction reverses whatever OUT movements of the sale are still
// active and stamps the sale the first time.
func (e *Engine) reverseDeduction(ctx context.Context, sale *service_sale.ServiceSale) (*costing.ReversalResult, bool, error) {
	result, err := e.costing.Reverse(ctx, sale.Source())
	if err != nil {
		return nil, false, err
	}
	if sale.DeductionReversedAt != nil {
		return result, len(result.Movements) > 0, nil
	}

	now := time.Now().UTC()
	sale.DeductionReversedAt = &now
	sale.Touch()
	if err := e.sales.Update(ctx, sale); err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// DeductForSale deducts stock for a sale priced by another system. A sale
// registered here whose deduction was already reversed cannot be
// deducted again.
func (e *Engine) DeductForSale(ctx context.Context, saleID id.ID, lines []costing.SaleLine, date time.Time) ([]costing.Deduction, error) {
	var deductions []costing.Deduction
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := e.sales.GetForUpdate(ctx, saleID)
		switch {
		case err == nil:
			if sale.DeductionReversedAt != nil {
				return apperror.NewConflict("sale deduction was reversed").
					WithDetail("sale_id", saleID.String())
			}
		case !apperror.IsNotFound(err):
			return err
		}
		deductions, err = e.costing.DeductForSale(ctx, saleID, lines, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deductions, nil
}

// DeleteSale reverses the sale's deduction if still active and
// soft-deletes the sale.
func (e *Engine) DeleteSale(ctx context.Context, saleID id.ID) error {
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := e.sales.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if _, _, err := e.reverseDeduction(ctx, sale); err != nil {
			return err
		}
		sale.MarkDeleted(time.Now().UTC())
		return e.sales.Update(ctx, sale)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "service sale deleted", "sale_id", saleID)
	audit.Emit(ctx, e.audit, audit.Entry{
		EntityType: "service_sale",
		EntityID:   saleID,
		Action:     audit.ActionDelete,
	})
	return nil
}

// GetSale returns a sale with its snapshots.
func (e *Engine) GetSale(ctx context.Context, saleID id.ID) (*service_sale.ServiceSale, error) {
	return e.sales.GetByID(ctx, saleID)
}
