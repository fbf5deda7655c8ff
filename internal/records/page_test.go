package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Page: 0, PageSize: 500, Query: "  Go ", Filter: " Popular"}.Normalize()

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, maxPageSize, q.PageSize)
	assert.Equal(t, "Go", q.Query)
	assert.Equal(t, "popular", q.Filter)
	assert.Equal(t, 0, q.Offset())
	assert.Equal(t, "%go%", q.LikePattern())

	q = ListQuery{Page: 3}.Normalize()
	assert.Equal(t, defaultPageSize, q.PageSize)
	assert.Equal(t, 20, q.Offset())
}
