package persistence

import (
	"strings"

	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/shared"
)

// allowedOrderColumns guards ORDER BY against injection; only known column
// names pass through.
var allowedOrderColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"date":       true,
	"code":       true,
	"name":       true,
	"sku":        true,
	"posted_at":  true,
	"status":     true,
}

// applyFilter applies pagination and ordering from the filter to the query
func applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := filter.OrderBy
	if !allowedOrderColumns[orderBy] {
		orderBy = "created_at"
	}
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" || filter.OrderDir == "" {
		orderDir = "DESC"
	}
	return query.Order(orderBy + " " + orderDir)
}
