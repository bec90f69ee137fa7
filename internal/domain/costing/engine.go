// Package costing orchestrates every stock mutation: goods receipts,
// manual write-offs, service sale deductions and their reversal.
//
// Each operation snapshots the inventory policy once, runs in a single
// transaction and takes the affected materials' row locks before reading
// any balance, so two operations on one material serialize while
// operations on different materials proceed independently.
package costing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clinicstock/internal/core/numerator"
	"clinicstock/internal/core/tx"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/documents/goods_receipt"
	"clinicstock/internal/domain/documents/write_off"
	"clinicstock/internal/domain/registers/ledger"
	"clinicstock/internal/domain/registers/lots"
	"clinicstock/internal/domain/settings"
)

var tracer = otel.Tracer("clinicstock/costing")

// Config holds the engine's collaborators.
type Config struct {
	TxManager tx.Manager
	Ledger    *ledger.Service
	Lots      *lots.Service
	Settings  settings.Provider
	Receipts  goods_receipt.Repository
	WriteOffs write_off.Repository
	// Audit and Numbers are optional.
	Audit   audit.Recorder
	Numbers numerator.Generator
}

// Engine is the costing engine.
type Engine struct {
	txManager tx.Manager
	ledger    *ledger.Service
	lots      *lots.Service
	settings  settings.Provider
	receipts  goods_receipt.Repository
	writeOffs write_off.Repository
	audit     audit.Recorder
	numbers   numerator.Generator
}

// NewEngine creates a costing engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		txManager: cfg.TxManager,
		ledger:    cfg.Ledger,
		lots:      cfg.Lots,
		settings:  cfg.Settings,
		receipts:  cfg.Receipts,
		writeOffs: cfg.WriteOffs,
		audit:     cfg.Audit,
		numbers:   cfg.Numbers,
	}
}

// policy reads the costing policy once for the current operation.
func (e *Engine) policy(ctx context.Context) (settings.InventorySettings, error) {
	p, err := e.settings.Get(ctx)
	if err != nil {
		return settings.InventorySettings{}, fmt.Errorf("read inventory settings: %w", err)
	}
	return p, nil
}

func lotOrder(p settings.InventorySettings) lots.Order {
	if p.UsesFEFO() {
		return lots.OrderFEFO
	}
	return lots.OrderFIFO
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "costing."+name, trace.WithAttributes(attrs...))
}
