package memory

import (
	"context"
	"time"

	"clinicstock/internal/core/numerator"
)

// Numerator issues document numbers from sequences kept in the store, so
// a rolled back transaction gives its numbers back.
type Numerator struct {
	store *Store
}

var _ numerator.Generator = (*Numerator)(nil)

// NewNumerator creates a numerator over store.
func NewNumerator(store *Store) *Numerator {
	return &Numerator{store: store}
}

// GetNextNumber implements numerator.Generator. Every strategy is strict.
func (n *Numerator) GetNextNumber(_ context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := numerator.Key(cfg, period)
	var next int64
	n.store.write(func(d *state) {
		d.sequences[key]++
		next = d.sequences[key]
	})
	return numerator.Format(cfg, period, next), nil
}

// SetNextNumber implements numerator.Generator.
func (n *Numerator) SetNextNumber(_ context.Context, cfg numerator.Config, period time.Time, value int64) error {
	key := numerator.Key(cfg, period)
	n.store.write(func(d *state) { d.sequences[key] = value })
	return nil
}
