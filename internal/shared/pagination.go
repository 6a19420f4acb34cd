package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListQuery carries the page window requested by a listing call.
type ListQuery struct {
	Page    int
	PerPage int
}

func (q ListQuery) normalized() ListQuery {
	if q.PerPage <= 0 || q.PerPage > 100 {
		q.PerPage = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return q
}

// Limit is the SQL LIMIT for this window.
func (q ListQuery) Limit() int {
	return q.normalized().PerPage
}

// Offset is the SQL OFFSET for this window.
func (q ListQuery) Offset() int {
	n := q.normalized()
	return (n.Page - 1) * n.PerPage
}

// Meta builds the response metadata for a listing of total rows.
func (q ListQuery) Meta(total int) Pagination {
	n := q.normalized()
	return NewPagination(n.Page, n.PerPage, total)
}
