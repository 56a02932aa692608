package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// PlanSortFields contains allowed sort fields for plans
var PlanSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"code":           true,
	"name":           true,
	"price_monthly":  true,
	"price_yearly":   true,
	"included_users": true,
}

// TenantSortFields contains allowed sort fields for tenants
var TenantSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"code":            true,
	"name":            true,
	"status":          true,
	"next_invoice_at": true,
}

// MembershipSortFields contains allowed sort fields for memberships
var MembershipSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"email":      true,
	"name":       true,
	"role":       true,
	"status":     true,
}

// InvoiceSortFields contains allowed sort fields for billing invoices
var InvoiceSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"number":       true,
	"period":       true,
	"issued_at":    true,
	"total_amount": true,
	"status":       true,
}
