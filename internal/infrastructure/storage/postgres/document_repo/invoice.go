package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain"
	"bottleworks/internal/domain/invoice"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const invoicesTable = "doc_invoices"

// Compile-time check that InvoiceRepo implements invoice.Repository.
var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			invoicesTable,
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
	}
}

// GetByOrder returns all invoices for an order.
func (r *InvoiceRepo) GetByOrder(ctx context.Context, orderID id.ID) ([]*invoice.Invoice, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("issued_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var invoices []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.Querier(ctx), &invoices, sql, args...); err != nil {
		return nil, fmt.Errorf("get by order: %w", err)
	}

	return invoices, nil
}

// GetByOrderAndType returns the invoice of the given type.
func (r *InvoiceRepo) GetByOrderAndType(ctx context.Context, orderID id.ID, invType invoice.Type) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{}
	q := r.baseSelect().
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Eq{"type": invType}).
		Where(squirrel.Eq{"deletion_mark": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), inv, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(invoicesTable, orderID.String())
		}
		return nil, fmt.Errorf("get by order and type: %w", err)
	}

	return inv, nil
}

// ClaimConsolidationSync rewrites the final invoice subtotal (and the
// total, preserving existing tax) in one conditional UPDATE. The WHERE
// clause is the whole safety story: only an unpaid final invoice with
// zero payments whose subtotal still matches the stale
// pre-consolidation amount (within one cent) is touched, so concurrent
// callers claim the rewrite at most once.
func (r *InvoiceRepo) ClaimConsolidationSync(ctx context.Context, orderID id.ID, expectedSubtotal, newSubtotal types.Money) (bool, error) {
	tolerance := types.Cent

	q := r.Builder().
		Update(invoicesTable).
		Set("subtotal", newSubtotal).
		Set("total", squirrel.Expr("? + tax", newSubtotal)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"order_id": orderID}).
		Where(squirrel.Eq{"type": invoice.TypeFinal}).
		Where(squirrel.Eq{"status": invoice.StatusUnpaid}).
		Where(squirrel.Eq{"payment_count": 0}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Expr("subtotal BETWEEN ? AND ?",
			expectedSubtotal.Sub(tolerance), expectedSubtotal.Add(tolerance)))

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build sync update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("claim consolidation sync: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// List retrieves invoices with filtering.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	result := domain.ListResult[*invoice.Invoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.OrderID != nil {
		q = q.Where(squirrel.Eq{"order_id": *filter.OrderID})
	}

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
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
