package persistence

import (
	"strings"

	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns defaultOrder if the input is empty or invalid.
func ValidateSortOrder(orderDir, defaultOrder string) string {
	switch strings.ToUpper(strings.TrimSpace(orderDir)) {
	case "ASC":
		return "ASC"
	case "DESC":
		return "DESC"
	}
	return defaultOrder
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// TemplateSortFields contains allowed sort fields for pipeline templates
var TemplateSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// PipelineSortFields contains allowed sort fields for pipelines
var PipelineSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"status":     true,
}

// FileSortFields contains allowed sort fields for files
var FileSortFields = map[string]bool{
	"created_at": true,
	"name":       true,
	"size":       true,
}

// OrderBy sorts by a whitelisted column; id breaks ties so pages are stable
func OrderBy(field, order string, allowed map[string]bool, defaultField, defaultOrder string) func(db *gorm.DB) *gorm.DB {
	column := ValidateSortField(field, allowed, defaultField)
	dir := ValidateSortOrder(order, defaultOrder)
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column + " " + dir).Order("id " + dir)
	}
}
