package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
	"clinicstock/internal/domain/documents/service_sale"
	"clinicstock/internal/domain/documents/write_off"
)

func TestExtractDBColumns_IncludesEmbeddedDocumentFields(t *testing.T) {
	cols := ExtractDBColumns[write_off.WriteOff]()

	for _, expected := range []string{
		"material_id", "lot_id", "quantity", "unit_cost", "total_cost",
		"reason", "write_off_date", "reversed_at",
		"id", "created_at", "updated_at", "created_by", "deleted_at",
	} {
		assert.Contains(t, cols, expected)
	}
}

func TestExtractDBColumns_SkipsUntaggedFields(t *testing.T) {
	cols := ExtractDBColumns[service_sale.ServiceSale]()
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Snapshots")
	assert.Contains(t, cols, "material_cost_total")
}

func TestStructToMap_WriteOff(t *testing.T) {
	lotID := id.New()
	doc := write_off.NewWriteOff(id.New(), &lotID, types.Qty(3), "expired", time.Now().UTC())
	doc.SetCost(types.MustMoney("2.5"))

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, doc.MaterialID, m["material_id"])
	assert.Equal(t, &lotID, m["lot_id"])
	assert.Equal(t, "expired", m["reason"])
	assert.True(t, types.MustMoney("7.5").Equal(m["total_cost"].(types.Money)))
}

func TestRowsFor_FollowsColumnOrder(t *testing.T) {
	sale := service_sale.NewServiceSale(id.New(), time.Now(), types.Qty(10), types.Zero(), "")
	sale.AddSnapshot(id.New(), types.Qty(2), types.Qty(3), types.Qty(1))

	rows := RowsFor(sale.Snapshots, []string{"sale_id", "material_id"})
	assert.Len(t, rows, 1)
	assert.Equal(t, sale.ID, rows[0][0])
	assert.Equal(t, sale.Snapshots[0].MaterialID, rows[0][1])
}
