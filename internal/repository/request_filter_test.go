package repository

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	f := RequestFilter{Limit: 1000, Offset: -3, Sort: "title; DROP", Order: "sideways", Status: "  new "}.Normalize()
	assert.Equal(t, 50, f.Limit)
	assert.Zero(t, f.Offset)
	assert.Equal(t, "updated_at", f.Sort)
	assert.Equal(t, "desc", f.Order)
	assert.Equal(t, "new", f.Status)

	f = RequestFilter{Limit: 10, Sort: "PRIORITY", Order: "ASC"}.Normalize()
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, "priority", f.Sort)
	assert.Equal(t, "asc", f.Order)
}

func TestWherePlaceholders(t *testing.T) {
	dollar := func(n int) string { return "$" + strconv.Itoa(n) }

	where, args := RequestFilter{}.Where(dollar)
	assert.Equal(t, "WHERE 1=1", where)
	assert.Empty(t, args)

	where, args = RequestFilter{Q: "Leak", Status: "new", VisibleTo: "u1"}.Where(dollar)
	assert.Equal(t, "WHERE 1=1 AND (LOWER(r.title) LIKE $1 OR LOWER(r.description) LIKE $2) AND r.status = $3 AND (r.created_by = $4 OR r.assigned_to = $5)", where)
	assert.Equal(t, []any{"%leak%", "%leak%", "new", "u1", "u1"}, args)
}
