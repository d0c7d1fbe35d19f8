package dto

import "math"

// Pagination describes the page window returned with list responses.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
}

// NewPagination computes page metadata; pages is ceil(total / limit).
func NewPagination(page, limit int, total int64) Pagination {
	if page <= 0 {
		page = 1
	}
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Current: page,
		Pages:   pages,
		Total:   total,
		Limit:   limit,
	}
}
