// Package memory provides in-memory repositories and a transaction
// manager with rollback, for tests and local development.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"clinicstock/internal/core/entity"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/documents/goods_receipt"
	"clinicstock/internal/domain/documents/service_sale"
	"clinicstock/internal/domain/documents/write_off"
	"clinicstock/internal/domain/settings"
)

// Store holds all tables. Transactions are serialized on txMu, which
// stands in for the per-material row locks of the postgres store.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

type state struct {
	materials map[id.ID]entity.Material
	movements []entity.StockMovement
	lots      map[id.ID]entity.MaterialLot
	receipts  map[id.ID]goods_receipt.GoodsReceipt
	writeOffs map[id.ID]write_off.WriteOff
	sales     map[id.ID]service_sale.ServiceSale
	settings  *settings.InventorySettings
	audit     []audit.Entry
	sequences map[string]int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newState()}
}

func newState() *state {
	return &state{
		materials: make(map[id.ID]entity.Material),
		lots:      make(map[id.ID]entity.MaterialLot),
		receipts:  make(map[id.ID]goods_receipt.GoodsReceipt),
		writeOffs: make(map[id.ID]write_off.WriteOff),
		sales:     make(map[id.ID]service_sale.ServiceSale),
		sequences: make(map[string]int64),
	}
}

// clone copies every table so a failed transaction can restore it.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.materials {
		c.materials[k] = v
	}
	c.movements = slices.Clone(s.movements)
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.receipts {
		v.Items = slices.Clone(v.Items)
		c.receipts[k] = v
	}
	for k, v := range s.writeOffs {
		c.writeOffs[k] = v
	}
	for k, v := range s.sales {
		v.Snapshots = slices.Clone(v.Snapshots)
		c.sales[k] = v
	}
	if s.settings != nil {
		cp := *s.settings
		c.settings = &cp
	}
	c.audit = slices.Clone(s.audit)
	maps.Copy(c.sequences, s.sequences)
	return c
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// PutMaterial inserts or replaces a catalog material.
func (s *Store) PutMaterial(m entity.Material) {
	s.write(func(d *state) { d.materials[m.ID] = m })
}

// Counts reports table sizes. Used by tests to assert that failed
// operations left nothing behind.
type Counts struct {
	Movements int
	Lots      int
	Receipts  int
	WriteOffs int
	Sales     int
}

// Counts returns current table sizes.
func (s *Store) Counts() Counts {
	var c Counts
	s.read(func(d *state) {
		c = Counts{
			Movements: len(d.movements),
			Lots:      len(d.lots),
			Receipts:  len(d.receipts),
			WriteOffs: len(d.writeOffs),
			Sales:     len(d.sales),
		}
	})
	return c
}

type txKey struct{}

// TxManager runs functions atomically against a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a transaction manager for store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction serializes fn against other transactions and restores
// the store if fn fails or panics. Nested calls join the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	var snapshot *state
	m.store.read(func(d *state) { snapshot = d.clone() })

	rollback := func() {
		m.store.write(func(d *state) { *d = *snapshot })
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		rollback()
		return err
	}
	return nil
}

// ReadOnly runs fn in a transaction. Writes are not prevented.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}
