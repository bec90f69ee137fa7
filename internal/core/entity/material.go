package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"clinicstock/internal/core/id"
)

// Material is a consumable tracked by the ledger. The catalog owns it;
// the ledger only reads it and maintains AverageCost.
type Material struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`

	// AverageCost caches the weighted-average cost derived from the
	// ledger. Only the ledger's recompute writes it.
	AverageCost decimal.Decimal `db:"average_cost" json:"averageCost"`

	MinStockThreshold decimal.Decimal `db:"min_stock_threshold" json:"minStockThreshold"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
