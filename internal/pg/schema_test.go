package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderExpr(t *testing.T) {
	var args []any
	assert.Equal(t, `"id"`, orderExpr("id", &args))
	assert.Equal(t, `"created_at"`, orderExpr("createdAt", &args))
	assert.Equal(t, `NULLIF("city", '')`, orderExpr("city", &args))
	assert.Empty(t, args)

	args = []any{"c1"}
	assert.Equal(t, "(attributes->>$2)", orderExpr("floor; drop table x", &args))
	assert.Equal(t, []any{"c1", "floor; drop table x"}, args)
}

func TestDDLOrder(t *testing.T) {
	ddl := DDL()
	assert.Contains(t, ddl["00_schema"], Schema)
	assert.Contains(t, ddl["10_scope_mappings"], tableMappings)
	assert.Contains(t, ddl["20_premises"], tableRecords)
	assert.Equal(t, `\%a\_b\\`, escapeLike(`%a_b\`))
}
