package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/addon"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const addonLinksTable = "doc_addon_links"

// Compile-time check that AddonLinkRepo implements addon.Repository.
var _ addon.Repository = (*AddonLinkRepo)(nil)

// AddonLinkRepo implements addon.Repository.
type AddonLinkRepo struct {
	*BaseDocumentRepo[*addon.Link]
}

// NewAddonLinkRepo creates a new add-on link repository.
func NewAddonLinkRepo(txManager *postgres.TxManager) *AddonLinkRepo {
	return &AddonLinkRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			addonLinksTable,
			postgres.ExtractDBColumns[addon.Link](),
			func() *addon.Link { return &addon.Link{} },
		),
	}
}

// GetByAddonOrder returns the link for an add-on order.
func (r *AddonLinkRepo) GetByAddonOrder(ctx context.Context, addonOrderID id.ID) (*addon.Link, error) {
	link := &addon.Link{}
	q := r.baseSelect().
		Where(squirrel.Eq{"addon_so_id": addonOrderID}).
		Where(squirrel.Eq{"deletion_mark": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), link, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(addonLinksTable, addonOrderID.String())
		}
		return nil, fmt.Errorf("get by addon order: %w", err)
	}

	return link, nil
}

// ListByParent returns all links for a parent order.
func (r *AddonLinkRepo) ListByParent(ctx context.Context, parentID id.ID) ([]*addon.Link, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"parent_so_id": parentID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var links []*addon.Link
	if err := pgxscan.Select(ctx, r.Querier(ctx), &links, sql, args...); err != nil {
		return nil, fmt.Errorf("list by parent: %w", err)
	}

	return links, nil
}
