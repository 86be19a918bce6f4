package repository

import (
	"errors"
	"strings"

	"github.com/straye-as/offers-api/internal/domain"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// DefaultPageSize is used when the caller does not ask for a page size
const DefaultPageSize = 50

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string
	Order SortOrder
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause maps an API sort field onto a whitelisted column list.
// Unknown fields fall back to defaultColumn.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	// multi-column sorts carry the direction on every column
	parts := strings.Split(column, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p) + " " + order
	}
	return strings.Join(parts, ", ")
}

// NormalizePage clamps page and pageSize to sane bounds
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// ApplyOwnerFilter restricts an offers query to rows owned by owner.
// Rows written before tenants existed have a NULL tenant_id and are matched
// by a case-insensitive comparison against the stored username instead.
func ApplyOwnerFilter(query *gorm.DB, owner domain.Owner) *gorm.DB {
	return ApplyOwnerFilterWithTable(query, owner, "offers")
}

// ApplyOwnerFilterWithTable is ApplyOwnerFilter with an explicit table qualifier
func ApplyOwnerFilterWithTable(query *gorm.DB, owner domain.Owner, table string) *gorm.DB {
	username := strings.ToLower(strings.TrimSpace(owner.Username))
	return query.Where(
		"("+table+".tenant_id = ? OR ("+table+".tenant_id IS NULL AND LOWER("+table+".owner_username) = ?))",
		owner.TenantID, username,
	)
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// escapeLike escapes LIKE wildcards in user input; use with ESCAPE '\'
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
