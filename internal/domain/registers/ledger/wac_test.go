package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

func movement(materialID id.ID, typ entity.MovementType, qty, cost string) entity.StockMovement {
	return entity.NewStockMovement(
		materialID, typ,
		types.MustMoney(qty), types.MustMoney(cost),
		entity.StockEntry(id.New()),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"",
	)
}

func TestCalculate_EmptyHistory(t *testing.T) {
	materialID := id.New()
	pos := Calculate(materialID, nil)

	assert.Equal(t, materialID, pos.MaterialID)
	assert.True(t, pos.Quantity.IsZero())
	assert.True(t, pos.AverageCost.IsZero())
}

func TestCalculate_WeightedAverage(t *testing.T) {
	m := id.New()
	history := []entity.StockMovement{
		movement(m, entity.MovementIn, "10", "5"),
		movement(m, entity.MovementIn, "10", "7"),
	}

	pos := Calculate(m, history)
	assert.True(t, pos.Quantity.Equal(types.Qty(20)))
	assert.True(t, pos.Value.Equal(types.MustMoney("120")))
	assert.True(t, pos.AverageCost.Equal(types.MustMoney("6")))
}

func TestCalculate_OutflowAtAverageKeepsAverage(t *testing.T) {
	m := id.New()
	history := []entity.StockMovement{
		movement(m, entity.MovementIn, "10", "5"),
		movement(m, entity.MovementIn, "10", "7"),
		movement(m, entity.MovementOut, "5", "6"),
	}

	pos := Calculate(m, history)
	assert.True(t, pos.Quantity.Equal(types.Qty(15)))
	assert.True(t, pos.AverageCost.Equal(types.MustMoney("6")))
	// averageCost x balance equals net value
	assert.True(t, pos.AverageCost.Mul(pos.Quantity).Equal(pos.Value))
}

func TestCalculate_ZeroBalanceHasZeroCost(t *testing.T) {
	m := id.New()
	history := []entity.StockMovement{
		movement(m, entity.MovementIn, "4", "2.5"),
		movement(m, entity.MovementOut, "4", "3"),
	}

	pos := Calculate(m, history)
	assert.True(t, pos.Quantity.IsZero())
	assert.True(t, pos.AverageCost.IsZero())
}

func TestCalculate_RoundsToCostScale(t *testing.T) {
	m := id.New()
	history := []entity.StockMovement{
		movement(m, entity.MovementIn, "3", "1"),
		movement(m, entity.MovementIn, "0", "0"),
		movement(m, entity.MovementIn, "3", "1.000001"),
	}
	pos := Calculate(m, history)
	assert.Equal(t, "1.000001", pos.AverageCost.StringFixed(types.CostScale))
}

func TestCalculate_Idempotent(t *testing.T) {
	m := id.New()
	history := []entity.StockMovement{
		movement(m, entity.MovementIn, "3", "10"),
		movement(m, entity.MovementIn, "7", "11"),
		movement(m, entity.MovementOut, "2", "10.7"),
	}

	first := Calculate(m, history)
	second := Calculate(m, history)
	assert.True(t, first.AverageCost.Equal(second.AverageCost))
	assert.True(t, first.Quantity.Equal(second.Quantity))
}

func TestMovementInput_Validate(t *testing.T) {
	valid := MovementInput{
		MaterialID: id.New(),
		Type:       entity.MovementIn,
		Quantity:   types.Qty(1),
		UnitCost:   types.Zero(),
		Source:     entity.StockEntry(id.New()),
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Quantity = types.Zero()
	assert.Error(t, bad.Validate())

	bad = valid
	bad.UnitCost = types.MustMoney("-1")
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Source = entity.SourceRef{}
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Type = "SIDEWAYS"
	assert.Error(t, bad.Validate())
}
