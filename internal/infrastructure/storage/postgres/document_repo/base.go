// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"clinicstock/internal/core/apperror"
	"clinicstock/internal/core/id"
	"clinicstock/internal/infrastructure/storage/postgres"
)

// immutableColumns are never rewritten by Update.
var immutableColumns = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"created_by": {},
}

// BaseDocumentRepo provides common header operations for document entities.
// Line tables are handled by the concrete repositories.
type BaseDocumentRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

// NewBaseDocumentRepo creates a new base document repository.
// Columns are derived from the db tags of T.
func NewBaseDocumentRepo[T any](txm *postgres.TxManager, tableName, entityName string) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the transaction bound to ctx or the pool.
func (r *BaseDocumentRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// TxManager exposes the transaction manager for line-table COPY.
func (r *BaseDocumentRepo[T]) TxManager() *postgres.TxManager {
	return r.txm
}

// Create inserts the document header.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, doc *T) error {
	data := postgres.PickColumns(postgres.StructToMap(doc), r.selectCols)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// Update rewrites every mutable header column.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, doc *T) error {
	data := postgres.StructToMap(doc)
	docID, ok := data["id"]
	if !ok {
		return fmt.Errorf("%s has no id field", r.entityName)
	}

	set := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if _, skip := immutableColumns[col]; skip {
			continue
		}
		if v, ok := data[col]; ok {
			set[col] = v
		}
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(set).
		Where(squirrel.Eq{"id": docID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, docID)
	}
	return nil
}

// SetTimestamp stamps a nullable time column such as reversed_at.
func (r *BaseDocumentRepo[T]) SetTimestamp(ctx context.Context, docID id.ID, column string, at time.Time) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		Set(column, at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", column, r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, docID.String())
	}
	return nil
}

func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"deleted_at": nil})
}

// GetByID retrieves a live document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, docID id.ID) (*T, error) {
	return r.get(ctx, r.baseSelect().Where(squirrel.Eq{"id": docID}), docID)
}

// GetForUpdate retrieves a document with a row lock.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, docID id.ID) (*T, error) {
	return r.get(ctx, r.baseSelect().Where(squirrel.Eq{"id": docID}).Suffix("FOR UPDATE"), docID)
}

func (r *BaseDocumentRepo[T]) get(ctx context.Context, q squirrel.SelectBuilder, docID id.ID) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	doc := new(T)
	if err := pgxscan.Get(ctx, r.Querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, docID.String())
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return doc, nil
}
