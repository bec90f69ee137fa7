package memory

import (
	"context"
	"slices"
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/domain/documents/goods_receipt"
	"clinicstock/internal/domain/documents/service_sale"
	"clinicstock/internal/domain/documents/write_off"
)

// ReceiptRepo implements goods_receipt.Repository.
type ReceiptRepo struct {
	store *Store
}

// NewReceiptRepo creates a goods receipt repository over store.
func NewReceiptRepo(store *Store) *ReceiptRepo {
	return &ReceiptRepo{store: store}
}

func (r *ReceiptRepo) Create(_ context.Context, doc *goods_receipt.GoodsReceipt) error {
	cp := *doc
	cp.Items = slices.Clone(doc.Items)
	r.store.write(func(d *state) { d.receipts[doc.ID] = cp })
	return nil
}

func (r *ReceiptRepo) GetByID(_ context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	var (
		doc goods_receipt.GoodsReceipt
		ok  bool
	)
	r.store.read(func(d *state) { doc, ok = d.receipts[docID] })
	if !ok {
		return nil, apperror.NewNotFound("goods receipt", docID.String())
	}
	doc.Items = slices.Clone(doc.Items)
	return &doc, nil
}

// WriteOffRepo implements write_off.Repository.
type WriteOffRepo struct {
	store *Store
}

// NewWriteOffRepo creates a write-off repository over store.
func NewWriteOffRepo(store *Store) *WriteOffRepo {
	return &WriteOffRepo{store: store}
}

func (r *WriteOffRepo) Create(_ context.Context, doc *write_off.WriteOff) error {
	cp := *doc
	r.store.write(func(d *state) { d.writeOffs[doc.ID] = cp })
	return nil
}

func (r *WriteOffRepo) GetByID(_ context.Context, docID id.ID) (*write_off.WriteOff, error) {
	var (
		doc write_off.WriteOff
		ok  bool
	)
	r.store.read(func(d *state) { doc, ok = d.writeOffs[docID] })
	if !ok {
		return nil, apperror.NewNotFound("write-off", docID.String())
	}
	return &doc, nil
}

func (r *WriteOffRepo) GetForUpdate(ctx context.Context, docID id.ID) (*write_off.WriteOff, error) {
	return r.GetByID(ctx, docID)
}

func (r *WriteOffRepo) MarkReversed(_ context.Context, docID id.ID, at time.Time) error {
	var ok bool
	r.store.write(func(d *state) {
		var doc write_off.WriteOff
		if doc, ok = d.writeOffs[docID]; ok {
			doc.ReversedAt = &at
			doc.UpdatedAt = at
			d.writeOffs[docID] = doc
		}
	})
	if !ok {
		return apperror.NewNotFound("write-off", docID.String())
	}
	return nil
}

// SaleRepo implements service_sale.Repository.
type SaleRepo struct {
	store *Store
}

// NewSaleRepo creates a service sale repository over store.
func NewSaleRepo(store *Store) *SaleRepo {
	return &SaleRepo{store: store}
}

func (r *SaleRepo) Create(_ context.Context, sale *service_sale.ServiceSale) error {
	cp := *sale
	cp.Snapshots = slices.Clone(sale.Snapshots)
	r.store.write(func(d *state) { d.sales[sale.ID] = cp })
	return nil
}

func (r *SaleRepo) GetByID(_ context.Context, saleID id.ID) (*service_sale.ServiceSale, error) {
	var (
		sale service_sale.ServiceSale
		ok   bool
	)
	r.store.read(func(d *state) { sale, ok = d.sales[saleID] })
	if !ok || sale.IsDeleted() {
		return nil, apperror.NewNotFound("service sale", saleID.String())
	}
	sale.Snapshots = slices.Clone(sale.Snapshots)
	return &sale, nil
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*service_sale.ServiceSale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) Update(_ context.Context, sale *service_sale.ServiceSale) error {
	var ok bool
	r.store.write(func(d *state) {
		var existing service_sale.ServiceSale
		if existing, ok = d.sales[sale.ID]; ok {
			cp := *sale
			cp.Snapshots = existing.Snapshots
			d.sales[sale.ID] = cp
		}
	})
	if !ok {
		return apperror.NewNotFound("service sale", sale.ID.String())
	}
	return nil
}

var (
	_ goods_receipt.Repository = (*ReceiptRepo)(nil)
	_ write_off.Repository     = (*WriteOffRepo)(nil)
	_ service_sale.Repository  = (*SaleRepo)(nil)
)
