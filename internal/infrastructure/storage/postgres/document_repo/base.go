// Package document_repo provides PostgreSQL implementations for document repositories.
// Documents are stored as a header row plus line tables; lines are written with COPY.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain"
	"lotkeeper/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides the header operations shared by every document.
type BaseDocumentRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	newFn      func() T
	inserter   *postgres.BatchInserter
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName, entityName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: selectCols,
		newFn:      newFn,
		inserter:   postgres.NewBatchInserter(txm),
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// insertHeader inserts the header row; a taken number is a Duplicate.
func (r *BaseDocumentRepo[T]) insertHeader(ctx context.Context, doc T) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(r.entityName, "number", fmt.Sprint(data["number"])).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// getHeader loads a header row, optionally locking it until commit.
func (r *BaseDocumentRepo[T]) getHeader(ctx context.Context, docID id.ID, forUpdate bool) (T, error) {
	doc := r.newFn()

	q := r.Builder().Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"id": docID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return doc, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return doc, apperror.NewNotFound(r.entityName, docID.String())
		}
		return doc, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return doc, nil
}

// updateHeader sets columns of one header row.
func (r *BaseDocumentRepo[T]) updateHeader(ctx context.Context, docID id.ID, set map[string]any) error {
	sql, args, err := r.Builder().Update(r.tableName).
		SetMap(set).
		Where(squirrel.Eq{"id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, docID.String())
	}
	return nil
}

// listHeaders returns one page of headers, newest document date first.
func (r *BaseDocumentRepo[T]) listHeaders(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	filter.Normalize()
	result := domain.ListResult[T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.Builder().Select(r.selectCols...).From(r.tableName)
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"doc_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.Lt{"doc_date": *filter.To})
	}

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := q.OrderBy("doc_date DESC", "number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return result, nil
}

// deleteChildren removes the line rows of a document.
func (r *BaseDocumentRepo[T]) deleteChildren(table, fk string, docID id.ID) postgres.BatchQuery {
	sql, args, _ := r.Builder().Delete(table).Where(squirrel.Eq{fk: docID}).ToSql()
	return postgres.BatchQuery{SQL: sql, Args: args}
}

// selectChildren loads the line rows of several documents ordered by parent then order column.
func selectChildren[L any](ctx context.Context, q postgres.Querier, table string, columns []string, fk string, parentIDs []id.ID, orderCol string) ([]L, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(columns...).
		From(table).
		Where(squirrel.Eq{fk: parentIDs}).
		OrderBy(fk, orderCol).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", table, err)
	}

	var out []L
	if err := pgxscan.Select(ctx, q, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return out, nil
}
