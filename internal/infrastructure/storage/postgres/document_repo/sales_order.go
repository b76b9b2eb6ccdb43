package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/id"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/order"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const (
	salesOrdersTable     = "doc_sales_orders"
	salesOrderLinesTable = "doc_sales_order_lines"
)

// Compile-time check that SalesOrderRepo implements order.Repository.
var _ order.Repository = (*SalesOrderRepo)(nil)

// SalesOrderRepo implements order.Repository.
type SalesOrderRepo struct {
	*BaseDocumentRepo[*order.Order]
}

// NewSalesOrderRepo creates a new sales order repository.
func NewSalesOrderRepo(txManager *postgres.TxManager) *SalesOrderRepo {
	return &SalesOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			salesOrdersTable,
			postgres.ExtractDBColumns[order.Order](),
			func() *order.Order { return &order.Order{} },
		),
	}
}

// GetLines retrieves lines for an order.
func (r *SalesOrderRepo) GetLines(ctx context.Context, orderID id.ID) ([]order.Line, error) {
	q := r.Builder().
		Select(
			"line_id", "order_id", "line_no", "sku_code", "sku_batch_prefix",
			"bottle_qty", "unit_price", "subtotal",
		).
		From(salesOrderLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []order.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines saves lines for an order (delete existing + insert new).
func (r *SalesOrderRepo) SaveLines(ctx context.Context, orderID id.ID, lines []order.Line) error {
	querier := r.Querier(ctx)

	deleteSQL := "DELETE FROM " + salesOrderLinesTable + " WHERE order_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(salesOrderLinesTable).
		Columns(
			"line_id", "order_id", "line_no", "sku_code", "sku_batch_prefix",
			"bottle_qty", "unit_price", "subtotal",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, orderID, line.LineNo, line.SKUCode, line.SKUBatchPrefix,
			line.BottleQty, line.UnitPrice, line.Subtotal,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// GetAddonOrders returns all add-on orders linked to a parent.
func (r *SalesOrderRepo) GetAddonOrders(ctx context.Context, parentID id.ID) ([]*order.Order, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"parent_order_id": parentID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var addons []*order.Order
	if err := pgxscan.Select(ctx, r.Querier(ctx), &addons, sql, args...); err != nil {
		return nil, fmt.Errorf("get add-on orders: %w", err)
	}

	return addons, nil
}

// List retrieves sales orders with filtering.
func (r *SalesOrderRepo) List(ctx context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error) {
	result := domain.ListResult[*order.Order]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.BrandID != nil {
		q = q.Where(squirrel.Eq{"brand_id": *filter.BrandID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.ParentOrderID != nil {
		q = q.Where(squirrel.Eq{"parent_order_id": *filter.ParentOrderID})
	}

	if filter.AddonsOnly {
		q = q.Where(squirrel.NotEq{"parent_order_id": nil})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"customer_name": searchPattern},
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

	orderBy := "created_at DESC"
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
