package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "GR_2026", Key(ReceiptNumbers, period))
	assert.Equal(t, "WO_2026_03", Key(Config{Prefix: "WO", ResetPeriod: ResetMonth}, period))
	assert.Equal(t, "SS", Key(Config{Prefix: "SS", ResetPeriod: ResetNever}, period))
}

func TestFormat(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "GR-2026-00042", Format(ReceiptNumbers, period, 42))
	assert.Equal(t, "WO-007", Format(Config{Prefix: "WO", PadWidth: 3}, period, 7))
	assert.Equal(t, "SS-00001", Format(Config{Prefix: "SS"}, period, 1))
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("GR-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("WO-007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
	assert.Equal(t, int64(-1), ParseNumber("GR-2026-x"))
}

func TestAssignWithoutGenerator(t *testing.T) {
	n, err := Assign(t.Context(), nil, ReceiptNumbers, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, n)
}
