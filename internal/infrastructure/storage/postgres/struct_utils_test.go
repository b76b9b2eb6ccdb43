package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bottleworks/internal/core/entity"
	"bottleworks/internal/core/id"
	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/order"
)

type mockDocument struct {
	entity.BaseDocument
	Number string `db:"number" json:"number"`
	Name   string `db:"name" json:"name"`
	Notes  string `db:"-" json:"notes"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	expectedCols := []string{
		"id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"number", "name",
	}
	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "notes")
}

func TestExtractDBColumns_Order(t *testing.T) {
	cols := ExtractDBColumns[order.Order]()

	for _, expected := range []string{
		"id", "version", "number", "brand_id", "customer_name",
		"status", "subtotal", "consolidated_total",
		"deposit_percent", "deposit_paid", "parent_order_id",
		"requires_labels", "comment",
	} {
		assert.Contains(t, cols, expected)
	}

	// Table parts are persisted separately.
	assert.NotContains(t, cols, "lines")
}

func TestStructToMap(t *testing.T) {
	doc := mockDocument{
		BaseDocument: entity.NewBaseDocument(),
		Number:       "SO-2026-00042",
		Name:         "Test Name",
		Notes:        "not persisted",
	}
	doc.Version = 5
	doc.DeletionMark = true

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, doc.CreatedAt, m["created_at"])
	assert.Equal(t, "SO-2026-00042", m["number"])
	assert.Equal(t, "Test Name", m["name"])
	_, ok := m["notes"]
	assert.False(t, ok)
}

func TestStructToMap_Order(t *testing.T) {
	o := order.New("ridgeline", "Harbor Wine & Spirits")
	o.Number = "SO-2026-00001"
	o.Subtotal = types.MustMoney("1610")
	parentID := id.New()
	o.ParentOrderID = &parentID

	m := StructToMap(o)

	assert.Equal(t, o.ID, m["id"])
	assert.Equal(t, "SO-2026-00001", m["number"])
	assert.Equal(t, "ridgeline", m["brand_id"])
	assert.Equal(t, order.StatusDraft, m["status"])
	assert.Equal(t, &parentID, m["parent_order_id"])
	_, ok := m["lines"]
	assert.False(t, ok)
}
