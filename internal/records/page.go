package records

import "strings"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ListQuery carries the paging, search and ordering parameters of a listing endpoint.
type ListQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Query    string `form:"query"`
	Filter   string `form:"filter"`
}

// Normalize clamps paging to sane bounds and tidies the search text.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	q.Query = strings.TrimSpace(q.Query)
	q.Filter = strings.ToLower(strings.TrimSpace(q.Filter))
	return q
}

// Offset is the number of rows skipped before the current page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// LikePattern returns a lowercase substring pattern for the search text.
func (q ListQuery) LikePattern() string {
	return "%" + strings.ToLower(q.Query) + "%"
}
