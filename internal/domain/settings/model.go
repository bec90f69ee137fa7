// Package settings provides the inventory costing policy.
package settings

import (
	"fmt"

	"clinicstock/internal/core/apperror"
)

// WriteOffMethod selects how the cost of an outflow is determined.
type WriteOffMethod string

const (
	WriteOffFIFO    WriteOffMethod = "FIFO"
	WriteOffAverage WriteOffMethod = "AVERAGE"
)

// ExpiryRule selects the lot ordering used during consumption.
type ExpiryRule string

const (
	ExpiryFEFO ExpiryRule = "FEFO"
	ExpiryNone ExpiryRule = "NONE"
)

// InventorySettings is the process-wide costing policy.
// Engines read it once at the start of an operation and use that copy
// for the whole transaction.
type InventorySettings struct {
	WriteOffMethod WriteOffMethod `db:"write_off_method" json:"writeOffMethod"`
	LotTracking    bool           `db:"lot_tracking" json:"lotTracking"`
	ExpiryRule     ExpiryRule     `db:"expiry_rule" json:"expiryRule"`
}

// Default returns the policy used when nothing has been saved yet.
func Default() InventorySettings {
	return InventorySettings{
		WriteOffMethod: WriteOffAverage,
		LotTracking:    false,
		ExpiryRule:     ExpiryNone,
	}
}

// Validate checks that enum fields hold known values.
func (s InventorySettings) Validate() error {
	switch s.WriteOffMethod {
	case WriteOffFIFO, WriteOffAverage:
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown write-off method %q", s.WriteOffMethod)).
			WithDetail("field", "writeOffMethod")
	}
	switch s.ExpiryRule {
	case ExpiryFEFO, ExpiryNone:
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown expiry rule %q", s.ExpiryRule)).
			WithDetail("field", "expiryRule")
	}
	return nil
}

// UsesFIFO reports whether outflows are costed from lots.
func (s InventorySettings) UsesFIFO() bool {
	return s.WriteOffMethod == WriteOffFIFO
}

// UsesLots reports whether receipts create lots and outflows deplete them.
func (s InventorySettings) UsesLots() bool {
	return s.LotTracking || s.UsesFIFO()
}

// UsesFEFO reports whether lots are consumed nearest-expiry first.
func (s InventorySettings) UsesFEFO() bool {
	return s.ExpiryRule == ExpiryFEFO
}
