package dto

import "clinicstock/internal/domain/settings"

// UpdateSettingsRequest replaces the inventory policy.
type UpdateSettingsRequest struct {
	WriteOffMethod string `json:"writeOffMethod" binding:"required,oneof=FIFO AVERAGE"`
	LotTracking    bool   `json:"lotTracking"`
	ExpiryRule     string `json:"expiryRule" binding:"required,oneof=FEFO NONE"`
}

// ToSettings converts the request to the domain policy.
func (r *UpdateSettingsRequest) ToSettings() settings.InventorySettings {
	return settings.InventorySettings{
		WriteOffMethod: settings.WriteOffMethod(r.WriteOffMethod),
		LotTracking:    r.LotTracking,
		ExpiryRule:     settings.ExpiryRule(r.ExpiryRule),
	}
}
