package goods_receipt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/core/types"
)

func TestGoodsReceipt_Totals(t *testing.T) {
	delivery := types.MustMoney("15.50")
	doc := NewGoodsReceipt(id.New(), time.Now(), &delivery, "")
	doc.AddItem(id.New(), types.Qty(10), types.MustMoney("5"), nil)
	doc.AddItem(id.New(), types.MustMoney("2.5"), types.MustMoney("4"), nil)

	assert.Equal(t, 1, doc.Items[0].LineNo)
	assert.Equal(t, 2, doc.Items[1].LineNo)
	assert.Equal(t, doc.ID, doc.Items[1].ReceiptID)
	assert.True(t, doc.TotalAmount.Equal(types.MustMoney("75.50")), doc.TotalAmount.String())
}

func TestGoodsReceipt_Validate(t *testing.T) {
	ctx := context.Background()

	empty := NewGoodsReceipt(id.New(), time.Now(), nil, "")
	assert.True(t, apperror.IsValidation(empty.Validate(ctx)))

	noSupplier := NewGoodsReceipt(id.Nil(), time.Now(), nil, "")
	noSupplier.AddItem(id.New(), types.Qty(1), types.Zero(), nil)
	assert.True(t, apperror.IsValidation(noSupplier.Validate(ctx)))

	zeroQty := NewGoodsReceipt(id.New(), time.Now(), nil, "")
	zeroQty.AddItem(id.New(), types.Zero(), types.Qty(1), nil)
	assert.True(t, apperror.IsValidation(zeroQty.Validate(ctx)))

	negPrice := NewGoodsReceipt(id.New(), time.Now(), nil, "")
	negPrice.AddItem(id.New(), types.Qty(1), types.MustMoney("-1"), nil)
	assert.True(t, apperror.IsValidation(negPrice.Validate(ctx)))

	ok := NewGoodsReceipt(id.New(), time.Now(), nil, "")
	ok.AddItem(id.New(), types.Qty(1), types.Zero(), nil)
	assert.NoError(t, ok.Validate(ctx))
}
