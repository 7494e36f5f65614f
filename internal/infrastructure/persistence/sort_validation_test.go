package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		orderBy  string
		orderDir string
		allowed  map[string]bool
		fallback string
		want     string
	}{
		{"whitelisted field ascending", "stock_quantity", "asc", ProductSortFields, "name", "stock_quantity ASC"},
		{"direction defaults to DESC", "expiry_date", "", ProductSortFields, "name", "expiry_date DESC"},
		{"unknown field falls back", "password_hash", "ASC", UserSortFields, "created_at", "created_at ASC"},
		{"injection in field", "name; DROP TABLE sales;--", "ASC", SaleSortFields, "created_at", "created_at ASC"},
		{"injection in direction", "total_amount", "ASC; DELETE FROM sales", SaleSortFields, "created_at", "total_amount DESC"},
		{"padded input is trimmed", "  receipt_number ", " asc ", SaleSortFields, "created_at", "receipt_number ASC"},
		{"field names are case sensitive", "NAME", "asc", CategorySortFields, "created_at", "created_at ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.orderBy, tt.orderDir, tt.allowed, tt.fallback))
		})
	}
}

func TestSortWhitelistsOnlyNameColumns(t *testing.T) {
	for name, fields := range map[string]map[string]bool{
		"products":      ProductSortFields,
		"categories":    CategorySortFields,
		"movements":     StockMovementSortFields,
		"sales":         SaleSortFields,
		"contacts":      ContactSortFields,
		"notifications": NotificationSortFields,
		"users":         UserSortFields,
	} {
		assert.True(t, fields["created_at"], "%s must sort by created_at", name)
		for field := range fields {
			assert.Regexp(t, `^[a-z_]+$`, field, "%s has an unsafe sort field", name)
		}
	}
	assert.False(t, UserSortFields["password_hash"])
}
