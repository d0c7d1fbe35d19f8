package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// orderBy applies an allow-listed sort column. Unknown keys fall back to created_at.
// Ties are broken by id so pages stay stable.
func orderBy(query *gorm.DB, columns map[string]string, sortBy, sortOrder string) *gorm.DB {
	column, ok := columns[strings.TrimSpace(sortBy)]
	if !ok {
		column = "created_at"
	}
	desc := !strings.EqualFold(strings.TrimSpace(sortOrder), "asc")

	return query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}

func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	pageSize = NormalizePageSize(pageSize)
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// NormalizePageSize clamps a requested page size into [1, 100], defaulting to 10.
func NormalizePageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultPageSize
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}

func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// LabelCount is one row of a grouped count.
type LabelCount struct {
	Label string
	Count int64
}
