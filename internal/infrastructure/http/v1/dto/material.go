package dto

import (
	"time"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/domain/registers/ledger"
)

// MovementQuery filters a movement history request.
type MovementQuery struct {
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a ledger filter.
func (q *MovementQuery) ToFilter() (ledger.MovementFilter, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return ledger.MovementFilter{}, apperror.NewValidation("'to' must not be before 'from'")
	}
	return ledger.MovementFilter{
		From:   q.From,
		To:     q.To,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}
