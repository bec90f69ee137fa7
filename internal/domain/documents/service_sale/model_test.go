package service_sale

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

func TestComputeMargin(t *testing.T) {
	margin, percent := ComputeMargin(types.MustMoney("3500"), types.MustMoney("350"))
	assert.True(t, margin.Equal(types.MustMoney("3150")))
	assert.True(t, percent.Equal(types.MustMoney("90")))

	margin, percent = ComputeMargin(types.Zero(), types.MustMoney("20"))
	assert.True(t, margin.Equal(types.MustMoney("-20")))
	assert.True(t, percent.IsZero())

	_, percent = ComputeMargin(types.MustMoney("3"), types.MustMoney("1"))
	assert.Equal(t, "66.67", percent.StringFixed(2))
}

func TestCheckAllocation(t *testing.T) {
	err := CheckAllocation(types.MustMoney("100"), types.MustMoney("60"), []decimal.Decimal{types.MustMoney("50")})
	assert.True(t, apperror.IsAllocationExceeded(err))

	err = CheckAllocation(types.MustMoney("100"), types.MustMoney("60"), []decimal.Decimal{types.MustMoney("40.01")})
	assert.NoError(t, err, "within tolerance")

	err = CheckAllocation(types.MustMoney("100"), types.MustMoney("60"), []decimal.Decimal{types.MustMoney("40.02")})
	assert.Error(t, err)
}

func TestServiceSale_Snapshots(t *testing.T) {
	sale := NewServiceSale(id.New(), time.Now(), types.MustMoney("3500"), types.MustMoney("1000"), "")
	sale.AddSnapshot(id.New(), types.Qty(2), types.MustMoney("100"), types.MustMoney("500"))
	sale.AddSnapshot(id.New(), types.Qty(3), types.MustMoney("50"), types.MustMoney("200"))
	sale.RecalculateMargin()

	assert.True(t, sale.MaterialCostTotal.Equal(types.MustMoney("350")))
	assert.True(t, sale.GrossMargin.Equal(types.MustMoney("3150")))
	assert.True(t, sale.MarginPercent.Equal(types.MustMoney("90")))
	assert.Equal(t, sale.ID, sale.Snapshots[0].SaleID)
}

func TestServiceSale_Validate(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, NewServiceSale(id.New(), time.Now(), types.Zero(), types.Zero(), "").Validate(ctx))
	assert.Error(t, NewServiceSale(id.Nil(), time.Now(), types.Zero(), types.Zero(), "").Validate(ctx))
	assert.Error(t, NewServiceSale(id.New(), time.Now(), types.MustMoney("-1"), types.Zero(), "").Validate(ctx))
	assert.Error(t, NewServiceSale(id.New(), time.Now(), types.Zero(), types.MustMoney("-1"), "").Validate(ctx))
}
