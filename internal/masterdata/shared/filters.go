package shared

import (
	core "github.com/tradewind-erp/tradewind-erp/internal/shared"
)

// ListFilters represents standard list page filters for master data.
type ListFilters struct {
	Search   string
	IsActive *bool
	Query    core.ListQuery

	// Entity specific filters
	CategoryID *int64
}
