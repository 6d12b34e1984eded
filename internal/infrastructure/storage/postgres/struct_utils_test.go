package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotkeeper/internal/core/entity"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
)

type mockDocument struct {
	entity.Document
	Total types.Money `db:"total"`
	Note  string      `db:"note"`
	Lines []string    `db:"-"`
}

func TestExtractDBColumns_EmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	for _, expected := range []string{"id", "number", "doc_date", "created_at", "updated_at", "total", "note"} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, 7)
}

func TestStructToMap_EmbeddedDocument(t *testing.T) {
	now := time.Now().UTC()
	doc := mockDocument{
		Document: entity.Document{ID: id.New(), Number: "V-2026-00001", Date: now},
		Total:    types.MustMoney("96.00"),
		Note:     "counter 2",
		Lines:    []string{"ignored"},
	}

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "V-2026-00001", m["number"])
	assert.Equal(t, now, m["doc_date"])
	assert.Equal(t, doc.Total, m["total"])
	assert.Equal(t, "counter 2", m["note"])
	_, hasLines := m["-"]
	assert.False(t, hasLines)
}

func TestInsertMap_DropsGeneratedColumns(t *testing.T) {
	mv := entity.StockMovement{
		MovementBase: entity.NewMovementBase(nil, "Sale", time.Now(), entity.RecordTypeExit),
		ProductID:    id.New(),
		Quantity:     types.NewQuantity(3),
	}
	mv.Sequence = 42

	m := InsertMap(mv, "seq")

	_, hasSeq := m["seq"]
	assert.False(t, hasSeq)
	require.Contains(t, m, "movement_type")
	assert.Equal(t, entity.RecordTypeExit, m["movement_type"])
	assert.Equal(t, types.NewQuantity(3), m["quantity"])
}

func TestNumeric_KeepsScale(t *testing.T) {
	n := Numeric(types.MustMoney("5.1667"))

	require.True(t, n.Valid)
	assert.Equal(t, int32(-4), n.Exp)
	assert.Equal(t, int64(51667), n.Int.Int64())
}
