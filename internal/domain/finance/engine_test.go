package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/finance"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/internal/domain/registers/lots"
	"clinicstock/internal/domain/settings"
	"clinicstock/internal/infrastructure/storage/memory"
)

type env struct {
	store   *memory.Store
	ledger  *ledger.Service
	costing *costing.Engine
	finance *finance.Engine
}

func newEnv(t *testing.T, policy settings.InventorySettings) *env {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	auditLog := memory.NewAuditLog(store)
	ledgerSvc := ledger.NewService(memory.NewLedgerRepo(store))

	costingEngine := costing.NewEngine(costing.Config{
		TxManager: txm,
		Ledger:    ledgerSvc,
		Lots:      lots.NewService(memory.NewLotRepo(store)),
		Settings:  settings.NewStatic(policy),
		Receipts:  memory.NewReceiptRepo(store),
		WriteOffs: memory.NewWriteOffRepo(store),
		Audit:     auditLog,
	})

	return &env{
		store:   store,
		ledger:  ledgerSvc,
		costing: costingEngine,
		finance: finance.NewEngine(finance.Config{
			TxManager: txm,
			Costing:   costingEngine,
			Ledger:    ledgerSvc,
			Sales:     memory.NewSaleRepo(store),
			Audit:     auditLog,
		}),
	}
}

func (e *env) stocked(t *testing.T, qty, cost string) id.ID {
	t.Helper()
	m := entity.Material{ID: id.New(), Name: "composite", Unit: "g"}
	e.store.PutMaterial(m)
	_, err := e.costing.RegisterReceipt(context.Background(), costing.ReceiptInput{
		SupplierID:  id.New(),
		ReceiptDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Items: []costing.ReceiptItem{{
			MaterialID: m.ID,
			Quantity:   types.MustMoney(qty),
			UnitPrice:  types.MustMoney(cost),
		}},
	})
	require.NoError(t, err)
	return m.ID
}

func money(s string) decimal.Decimal { return types.MustMoney(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, money(want).Equal(got), "want %s, got %s", want, got)
}

func saleOf(materials ...finance.MaterialLine) finance.SaleInput {
	return finance.SaleInput{
		ServiceID:   id.New(),
		SaleDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalPrice:  money("3500"),
		LaborAmount: money("1000"),
		Materials:   materials,
	}
}

func TestRegisterSale_MarginExample(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "175")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("2"), AssignedAmount: money("500")},
	))
	require.NoError(t, err)

	sale := res.Sale
	requireDec(t, "350", sale.MaterialCostTotal)
	requireDec(t, "3150", sale.GrossMargin)
	requireDec(t, "90", sale.MarginPercent)

	require.Len(t, sale.Snapshots, 1)
	requireDec(t, "175", sale.Snapshots[0].UnitCostSnapshot)
	requireDec(t, "350", sale.Snapshots[0].TotalCost)

	require.Len(t, res.Deductions, 1)
	assert.Equal(t, entity.ServiceSale(sale.ID), res.Deductions[0].Movement.Source())

	pos, err := e.ledger.Position(context.Background(), m)
	require.NoError(t, err)
	requireDec(t, "8", pos.Quantity)

	stored, err := e.finance.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	requireDec(t, "3150", stored.GrossMargin)
}

func TestRegisterSale_AllocationCeiling(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "1")

	in := saleOf(finance.MaterialLine{MaterialID: m, Quantity: money("1"), AssignedAmount: money("50")})
	in.TotalPrice = money("100")
	in.LaborAmount = money("60")

	_, err := e.finance.RegisterSale(context.Background(), in)
	require.True(t, apperror.IsAllocationExceeded(err))
	assert.Equal(t, 0, e.store.Counts().Sales)
}

func TestRegisterSale_RequiresMaterialLines(t *testing.T) {
	e := newEnv(t, settings.Default())

	_, err := e.finance.RegisterSale(context.Background(), saleOf())
	assert.True(t, apperror.IsValidation(err))
}

func TestRegisterSale_ReportsFirstInsufficientMaterial(t *testing.T) {
	e := newEnv(t, settings.Default())
	ok := e.stocked(t, "10", "1")
	short := e.stocked(t, "1", "1")
	before := e.store.Counts()

	_, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: ok, Quantity: money("2")},
		finance.MaterialLine{MaterialID: short, Quantity: money("3")},
	))
	require.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, short.String(), appErr.Details["material_id"])
	assert.Equal(t, "2", appErr.Details["shortfall"])
	assert.Equal(t, before, e.store.Counts())
}

func TestRegisterSale_AggregatesRepeatedMaterial(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "5", "1")

	_, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("3")},
		finance.MaterialLine{MaterialID: m, Quantity: money("3")},
	))
	require.True(t, apperror.IsInsufficientStock(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "6", appErr.Details["requested"])
}

func TestUpdateSale_UsesFrozenCost(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "175")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("2"), AssignedAmount: money("500")},
	))
	require.NoError(t, err)

	// new stock at a much higher price moves the average cost
	_, err = e.costing.RegisterReceipt(context.Background(), costing.ReceiptInput{
		SupplierID:  id.New(),
		ReceiptDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Items:       []costing.ReceiptItem{{MaterialID: m, Quantity: money("8"), UnitPrice: money("1000")}},
	})
	require.NoError(t, err)

	price := money("4000")
	updated, err := e.finance.UpdateSale(context.Background(), res.Sale.ID, finance.SaleUpdate{TotalPrice: &price})
	require.NoError(t, err)

	requireDec(t, "350", updated.MaterialCostTotal)
	requireDec(t, "3650", updated.GrossMargin)
	requireDec(t, "91.25", updated.MarginPercent)
	requireDec(t, "175", updated.Snapshots[0].UnitCostSnapshot)
}

func TestUpdateSale_RechecksAllocation(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "1")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("1"), AssignedAmount: money("500")},
	))
	require.NoError(t, err)

	labor := money("3200")
	_, err = e.finance.UpdateSale(context.Background(), res.Sale.ID, finance.SaleUpdate{LaborAmount: &labor})
	assert.True(t, apperror.IsAllocationExceeded(err))

	stored, err := e.finance.GetSale(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	requireDec(t, "1000", stored.LaborAmount)
}

func TestReverseSaleDeduction(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "5")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("4")},
	))
	require.NoError(t, err)

	rev, err := e.finance.ReverseSaleDeduction(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	require.Len(t, rev.Movements, 1)

	pos, err := e.ledger.Position(context.Background(), m)
	require.NoError(t, err)
	requireDec(t, "10", pos.Quantity)
	requireDec(t, "5", pos.AverageCost)

	again, err := e.finance.ReverseSaleDeduction(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Movements)

	sale, err := e.finance.GetSale(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	assert.NotNil(t, sale.DeductionReversedAt)
}

func TestReverseSaleDeduction_ExternallyPricedSale(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "5")

	saleID := id.New()
	_, err := e.finance.DeductForSale(context.Background(), saleID, []costing.SaleLine{
		{MaterialID: m, Quantity: money("3"), FallbackUnitCost: money("5")},
	}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rev, err := e.finance.ReverseSaleDeduction(context.Background(), saleID)
	require.NoError(t, err)
	require.Len(t, rev.Movements, 1)

	pos, err := e.ledger.Position(context.Background(), m)
	require.NoError(t, err)
	requireDec(t, "10", pos.Quantity)

	again, err := e.finance.ReverseSaleDeduction(context.Background(), saleID)
	require.NoError(t, err)
	assert.Empty(t, again.Movements)
}

func TestDeductForSale_RejectsReversedSale(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "5")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("4")},
	))
	require.NoError(t, err)
	_, err = e.finance.ReverseSaleDeduction(context.Background(), res.Sale.ID)
	require.NoError(t, err)

	_, err = e.finance.DeductForSale(context.Background(), res.Sale.ID, []costing.SaleLine{
		{MaterialID: m, Quantity: money("3"), FallbackUnitCost: money("5")},
	}, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)

	pos, err := e.ledger.Position(context.Background(), m)
	require.NoError(t, err)
	requireDec(t, "10", pos.Quantity)
}

func TestReverseSaleDeduction_CatchesOutsLeftActive(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "5")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("4")},
	))
	require.NoError(t, err)
	_, err = e.finance.ReverseSaleDeduction(context.Background(), res.Sale.ID)
	require.NoError(t, err)

	// Posted straight through the costing engine, bypassing the sale check.
	_, err = e.costing.DeductForSale(context.Background(), res.Sale.ID, []costing.SaleLine{
		{MaterialID: m, Quantity: money("3"), FallbackUnitCost: money("5")},
	}, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rev, err := e.finance.ReverseSaleDeduction(context.Background(), res.Sale.ID)
	require.NoError(t, err)
	require.Len(t, rev.Movements, 1)

	pos, err := e.ledger.Position(context.Background(), m)
	require.NoError(t, err)
	requireDec(t, "10", pos.Quantity)
}

func TestDeleteSale(t *testing.T) {
	e := newEnv(t, settings.Default())
	m := e.stocked(t, "10", "5")

	res, err := e.finance.RegisterSale(context.Background(), saleOf(
		finance.MaterialLine{MaterialID: m, Quantity: money("4")},
	))
	require.NoError(t, err)

	require.NoError(t, e.finance.DeleteSale(context.Background(), res.Sale.ID))

	pos, err := e.ledger.Position(context.Background(), m)
	require.NoError(t, err)
	requireDec(t, "10", pos.Quantity)

	_, err = e.finance.GetSale(context.Background(), res.Sale.ID)
	assert.True(t, apperror.IsNotFound(err))

	err = e.finance.DeleteSale(context.Background(), res.Sale.ID)
	assert.True(t, apperror.IsNotFound(err))
}
