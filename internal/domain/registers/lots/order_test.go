package lots_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/lots"
)

func date(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func expires(month time.Month, d int) *time.Time {
	t := date(month, d)
	return &t
}

func TestSort(t *testing.T) {
	low := id.MustParse("00000000-0000-7000-8000-000000000001")
	high := id.MustParse("00000000-0000-7000-8000-000000000002")

	tests := []struct {
		name  string
		order lots.Order
		lots  []entity.MaterialLot
		want  []string
	}{
		{
			name:  "fifo by received date",
			order: lots.OrderFIFO,
			lots: []entity.MaterialLot{
				{ID: id.New(), ReceivedAt: date(time.February, 1), ExpiryDate: expires(time.March, 1)},
				{ID: id.New(), ReceivedAt: date(time.January, 1), ExpiryDate: expires(time.June, 1)},
			},
			want: []string{"jan", "feb"},
		},
		{
			name:  "fefo nearest expiry first",
			order: lots.OrderFEFO,
			lots: []entity.MaterialLot{
				{ID: id.New(), ReceivedAt: date(time.January, 1), ExpiryDate: expires(time.June, 1)},
				{ID: id.New(), ReceivedAt: date(time.February, 1), ExpiryDate: expires(time.March, 1)},
			},
			want: []string{"feb", "jan"},
		},
		{
			name:  "fefo equal expiry falls back to received date",
			order: lots.OrderFEFO,
			lots: []entity.MaterialLot{
				{ID: id.New(), ReceivedAt: date(time.February, 1), ExpiryDate: expires(time.June, 1)},
				{ID: id.New(), ReceivedAt: date(time.January, 1), ExpiryDate: expires(time.June, 1)},
			},
			want: []string{"jan", "feb"},
		},
		{
			name:  "fefo missing expiry goes last",
			order: lots.OrderFEFO,
			lots: []entity.MaterialLot{
				{ID: id.New(), ReceivedAt: date(time.January, 1)},
				{ID: id.New(), ReceivedAt: date(time.February, 1), ExpiryDate: expires(time.December, 1)},
			},
			want: []string{"feb", "jan"},
		},
		{
			name:  "fefo both without expiry falls back to received date",
			order: lots.OrderFEFO,
			lots: []entity.MaterialLot{
				{ID: id.New(), ReceivedAt: date(time.February, 1)},
				{ID: id.New(), ReceivedAt: date(time.January, 1)},
			},
			want: []string{"jan", "feb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lots.Sort(tt.lots, tt.order)

			got := make([]string, 0, len(tt.lots))
			for _, lot := range tt.lots {
				got = append(got, monthName(lot.ReceivedAt))
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("same instant falls back to id", func(t *testing.T) {
		for _, order := range []lots.Order{lots.OrderFIFO, lots.OrderFEFO} {
			same := []entity.MaterialLot{
				{ID: high, ReceivedAt: date(time.January, 1), ExpiryDate: expires(time.June, 1)},
				{ID: low, ReceivedAt: date(time.January, 1), ExpiryDate: expires(time.June, 1)},
			}
			lots.Sort(same, order)
			assert.Equal(t, []id.ID{low, high}, []id.ID{same[0].ID, same[1].ID}, order)
		}
	})
}

func monthName(t time.Time) string {
	switch t.Month() {
	case time.January:
		return "jan"
	case time.February:
		return "feb"
	default:
		return t.Month().String()
	}
}
