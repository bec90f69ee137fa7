package memory

import (
	"context"
	"slices"

	"clinicstock/internal/domain/audit"
	"clinicstock/internal/domain/settings"
)

// SettingsRepo implements settings.Repository.
type SettingsRepo struct {
	store *Store
}

// NewSettingsRepo creates a settings repository over store.
func NewSettingsRepo(store *Store) *SettingsRepo {
	return &SettingsRepo{store: store}
}

func (r *SettingsRepo) Load(_ context.Context) (settings.InventorySettings, bool, error) {
	var s *settings.InventorySettings
	r.store.read(func(d *state) { s = d.settings })
	if s == nil {
		return settings.InventorySettings{}, false, nil
	}
	return *s, true, nil
}

func (r *SettingsRepo) Save(_ context.Context, s settings.InventorySettings) error {
	r.store.write(func(d *state) { d.settings = &s })
	return nil
}

// AuditLog implements audit.Recorder.
type AuditLog struct {
	store *Store
}

// NewAuditLog creates an audit recorder over store.
func NewAuditLog(store *Store) *AuditLog {
	return &AuditLog{store: store}
}

func (a *AuditLog) Record(_ context.Context, entry audit.Entry) error {
	a.store.write(func(d *state) { d.audit = append(d.audit, entry) })
	return nil
}

// Entries returns recorded entries in order.
func (a *AuditLog) Entries() []audit.Entry {
	var out []audit.Entry
	a.store.read(func(d *state) { out = slices.Clone(d.audit) })
	return out
}

var (
	_ settings.Repository = (*SettingsRepo)(nil)
	_ audit.Recorder      = (*AuditLog)(nil)
)
