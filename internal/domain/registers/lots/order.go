// Package lots provides the lot store contract and the FIFO/FEFO
// consumption strategy.
package lots

import (
	"bytes"
	"sort"

	"clinicstock/internal/core/entity"
)

// Order is the sequence in which lots are drawn.
type Order string

const (
	// OrderFIFO draws the oldest received lot first.
	OrderFIFO Order = "FIFO"
	// OrderFEFO draws the lot nearest to expiry first. Lots without an
	// expiry date go last; ties fall back to FIFO.
	OrderFEFO Order = "FEFO"
)

// Sort orders lots in place. The final tie-break on ID keeps the order
// deterministic for lots received at the same instant.
func Sort(lots []entity.MaterialLot, order Order) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]

		if order == OrderFEFO {
			switch {
			case a.ExpiryDate != nil && b.ExpiryDate == nil:
				return true
			case a.ExpiryDate == nil && b.ExpiryDate != nil:
				return false
			case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		}

		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}
