// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
)

// IDResponse contains the ID of a created entity.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ItemsResponse wraps a list result.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewItemsResponse never encodes a null list.
func NewItemsResponse[T any](items []T) ItemsResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ItemsResponse[T]{Items: items, Count: len(items)}
}

// ParseID parses a UUID field, reporting the field name on failure.
func ParseID(field, raw string) (id.ID, error) {
	parsed, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return parsed, nil
}

// parseOptionalID parses a pointer id field.
func parseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// dateOrNow defaults an omitted business date to the current instant.
func dateOrNow(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return time.Now().UTC()
	}
	return d.UTC()
}
