package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/lots"
)

// LotRepo implements lots.Repository.
type LotRepo struct {
	store *Store
}

// NewLotRepo creates a lot repository over store.
func NewLotRepo(store *Store) *LotRepo {
	return &LotRepo{store: store}
}

func (r *LotRepo) Create(_ context.Context, lot entity.MaterialLot) error {
	r.store.write(func(d *state) { d.lots[lot.ID] = lot })
	return nil
}

func (r *LotRepo) Get(_ context.Context, lotID id.ID) (entity.MaterialLot, error) {
	var (
		lot entity.MaterialLot
		ok  bool
	)
	r.store.read(func(d *state) { lot, ok = d.lots[lotID] })
	if !ok {
		return entity.MaterialLot{}, apperror.NewNotFound("lot", lotID.String())
	}
	return lot, nil
}

func (r *LotRepo) ListAvailable(_ context.Context, materialID id.ID, order lots.Order) ([]entity.MaterialLot, error) {
	out := make([]entity.MaterialLot, 0)
	r.store.read(func(d *state) {
		for _, lot := range d.lots {
			if lot.MaterialID == materialID && lot.Quantity.IsPositive() {
				out = append(out, lot)
			}
		}
	})
	lots.Sort(out, order)
	return out, nil
}

func (r *LotRepo) UpdateQuantity(_ context.Context, lotID id.ID, quantity decimal.Decimal) error {
	var ok bool
	r.store.write(func(d *state) {
		var lot entity.MaterialLot
		if lot, ok = d.lots[lotID]; ok {
			lot.Quantity = quantity
			d.lots[lotID] = lot
		}
	})
	if !ok {
		return apperror.NewNotFound("lot", lotID.String())
	}
	return nil
}

func (r *LotRepo) Delete(_ context.Context, lotID id.ID) error {
	r.store.write(func(d *state) { delete(d.lots, lotID) })
	return nil
}

func (r *LotRepo) SumRemaining(_ context.Context, materialID id.ID) (decimal.Decimal, error) {
	total := decimal.Zero
	r.store.read(func(d *state) {
		for _, lot := range d.lots {
			if lot.MaterialID == materialID {
				total = total.Add(lot.Quantity)
			}
		}
	})
	return total, nil
}

func (r *LotRepo) SumRemainingByMaterial(_ context.Context) (map[id.ID]decimal.Decimal, error) {
	totals := make(map[id.ID]decimal.Decimal)
	r.store.read(func(d *state) {
		for _, lot := range d.lots {
			totals[lot.MaterialID] = totals[lot.MaterialID].Add(lot.Quantity)
		}
	})
	return totals, nil
}

var _ lots.Repository = (*LotRepo)(nil)
