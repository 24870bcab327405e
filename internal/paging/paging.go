// Package paging normalizes page/limit query parameters.
package paging

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Normalize clamps page to at least 1 and limit into [1, max], using def
// when limit is unset.
func Normalize(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return page, limit
}

// Offset returns the row offset for page and limit.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

// New builds a Pagination for total rows.
func New(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
