// Package numerator provides contracts for human-readable document numbers.
// Implementations live in the storage layers.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential document numbers.
type Generator interface {
	// GetNextNumber generates the next document number for period.
	// Pattern: PREFIX-YEAR-NNNNN (e.g. GR-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the current value of a sequence, e.g. when
	// numbering continues from a previous system.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// Assign returns the next strict number, or "" when g is nil.
func Assign(ctx context.Context, g Generator, cfg Config, period time.Time) (string, error) {
	if g == nil {
		return "", nil
	}
	return g.GetNextNumber(ctx, cfg, nil, period)
}
