package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/registers/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a ledger repository over store.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

func (r *LedgerRepo) LockMaterial(ctx context.Context, materialID id.ID) (entity.Material, error) {
	return r.GetMaterial(ctx, materialID)
}

func (r *LedgerRepo) GetMaterial(_ context.Context, materialID id.ID) (entity.Material, error) {
	var (
		m  entity.Material
		ok bool
	)
	r.store.read(func(d *state) { m, ok = d.materials[materialID] })
	if !ok {
		return entity.Material{}, apperror.NewNotFound("material", materialID.String())
	}
	return m, nil
}

func (r *LedgerRepo) ListMaterialIDs(_ context.Context) ([]id.ID, error) {
	var ids []id.ID
	r.store.read(func(d *state) {
		ids = make([]id.ID, 0, len(d.materials))
		for k := range d.materials {
			ids = append(ids, k)
		}
	})
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, nil
}

func (r *LedgerRepo) UpdateAverageCost(_ context.Context, materialID id.ID, cost decimal.Decimal) error {
	var ok bool
	r.store.write(func(d *state) {
		var m entity.Material
		if m, ok = d.materials[materialID]; ok {
			m.AverageCost = cost
			m.UpdatedAt = time.Now().UTC()
			d.materials[materialID] = m
		}
	})
	if !ok {
		return apperror.NewNotFound("material", materialID.String())
	}
	return nil
}

func (r *LedgerRepo) InsertMovement(_ context.Context, m entity.StockMovement) error {
	r.store.write(func(d *state) { d.movements = append(d.movements, m) })
	return nil
}

func (r *LedgerRepo) ListMovements(_ context.Context, materialID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	r.store.read(func(d *state) {
		for _, m := range d.movements {
			if m.MaterialID != materialID {
				continue
			}
			if filter.From != nil && m.MovementDate.Before(*filter.From) {
				continue
			}
			if filter.To != nil && m.MovementDate.After(*filter.To) {
				continue
			}
			out = append(out, m)
		}
	})

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].MovementDate.Equal(out[j].MovementDate) {
			return out[i].MovementDate.Before(out[j].MovementDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []entity.StockMovement{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *LedgerRepo) ListActiveOut(_ context.Context, source entity.SourceRef) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	r.store.read(func(d *state) {
		for _, m := range d.movements {
			if m.Type == entity.MovementOut && m.Source() == source && !m.IsReversed() {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (r *LedgerRepo) MarkReversed(_ context.Context, movementID id.ID, at time.Time) error {
	found := false
	r.store.write(func(d *state) {
		for i := range d.movements {
			if d.movements[i].ID == movementID {
				d.movements[i].ReversedAt = &at
				found = true
				return
			}
		}
	})
	if !found {
		return apperror.NewNotFound("movement", movementID.String())
	}
	return nil
}

var _ ledger.Repository = (*LedgerRepo)(nil)
