package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/batch"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const (
	batchesTable    = "doc_production_batches"
	batchItemsTable = "doc_production_batch_items"
	batchStepsTable = "doc_production_batch_steps"
)

// Compile-time check that ProductionBatchRepo implements batch.Repository.
var _ batch.Repository = (*ProductionBatchRepo)(nil)

// ProductionBatchRepo implements batch.Repository.
type ProductionBatchRepo struct {
	*BaseDocumentRepo[*batch.ProductionBatch]
}

// NewProductionBatchRepo creates a new production batch repository.
func NewProductionBatchRepo(txManager *postgres.TxManager) *ProductionBatchRepo {
	return &ProductionBatchRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			batchesTable,
			postgres.ExtractDBColumns[batch.ProductionBatch](),
			func() *batch.ProductionBatch { return &batch.ProductionBatch{} },
		),
	}
}

// GetItems retrieves allocation items for a batch.
func (r *ProductionBatchRepo) GetItems(ctx context.Context, batchID id.ID) ([]batch.Item, error) {
	q := r.Builder().
		Select("item_id", "batch_id", "order_id", "line_id", "qty", "inferred").
		From(batchItemsTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("item_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []batch.Item
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SaveItems saves allocation items for a batch (delete existing + insert new).
func (r *ProductionBatchRepo) SaveItems(ctx context.Context, batchID id.ID, items []batch.Item) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + batchItemsTable + " WHERE batch_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, batchID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(batchItemsTable).
		Columns("item_id", "batch_id", "order_id", "line_id", "qty", "inferred")

	for _, it := range items {
		q = q.Values(it.ItemID, batchID, it.OrderID, it.LineID, it.Qty, it.Inferred)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// GetItemsByOrder returns every batch item allocated to the order.
func (r *ProductionBatchRepo) GetItemsByOrder(ctx context.Context, orderID id.ID) ([]batch.Item, error) {
	q := r.Builder().
		Select("i.item_id", "i.batch_id", "i.order_id", "i.line_id", "i.qty", "i.inferred").
		From(batchItemsTable + " i").
		Join(batchesTable + " b ON b.id = i.batch_id").
		Where(squirrel.Eq{"i.order_id": orderID}).
		Where(squirrel.Eq{"b.deletion_mark": false}).
		Where(squirrel.NotEq{"b.status": batch.StatusCancelled})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []batch.Item
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items by order: %w", err)
	}

	return items, nil
}

// GetSteps retrieves workflow steps for a batch.
func (r *ProductionBatchRepo) GetSteps(ctx context.Context, batchID id.ID) ([]batch.WorkflowStep, error) {
	q := r.Builder().
		Select("step_id", "batch_id", "seq", "kind", "status", "completed_at", "completed_by").
		From(batchStepsTable).
		Where(squirrel.Eq{"batch_id": batchID}).
		OrderBy("seq")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var steps []batch.WorkflowStep
	if err := pgxscan.Select(ctx, r.Querier(ctx), &steps, sql, args...); err != nil {
		return nil, fmt.Errorf("get steps: %w", err)
	}

	return steps, nil
}

// SaveSteps saves workflow steps for a batch (delete existing + insert new).
func (r *ProductionBatchRepo) SaveSteps(ctx context.Context, batchID id.ID, steps []batch.WorkflowStep) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + batchStepsTable + " WHERE batch_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, batchID); err != nil {
		return fmt.Errorf("delete existing steps: %w", err)
	}

	if len(steps) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(batchStepsTable).
		Columns("step_id", "batch_id", "seq", "kind", "status", "completed_at", "completed_by")

	for _, st := range steps {
		q = q.Values(st.StepID, batchID, st.Seq, st.Kind, st.Status, st.CompletedAt, st.CompletedBy)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert steps: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert steps: %w", err)
	}

	return nil
}

// GetByOrder returns the order's batches, legacy item-less ones
// included.
func (r *ProductionBatchRepo) GetByOrder(ctx context.Context, orderID id.ID) ([]*batch.ProductionBatch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*batch.ProductionBatch
	if err := pgxscan.Select(ctx, r.Querier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("get by order: %w", err)
	}

	return batches, nil
}

// GetByPrefix returns the order's batches whose number starts with
// prefix + "-".
func (r *ProductionBatchRepo) GetByPrefix(ctx context.Context, orderID id.ID, prefix string) ([]*batch.ProductionBatch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Like{"number": prefix + "-%"}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*batch.ProductionBatch
	if err := pgxscan.Select(ctx, r.Querier(ctx), &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("get by prefix: %w", err)
	}

	return batches, nil
}

// List retrieves production batches with filtering.
func (r *ProductionBatchRepo) List(ctx context.Context, filter batch.ListFilter) (domain.ListResult[*batch.ProductionBatch], error) {
	result := domain.ListResult[*batch.ProductionBatch]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.SKUPrefix != nil {
		q = q.Where(squirrel.Eq{"sku_prefix": *filter.SKUPrefix})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"sku_code": searchPattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.Querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy := "number"
	if filter.OrderBy != "" {
		orderBy, err = r.parseOrderBy(filter.OrderBy)
		if err != nil {
			return result, err
		}
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}
