package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clinic-portal/portal-service/internal/repositories"
	"gorm.io/gorm"
)

// getDB prefers the caller's transaction over the repository's own handle.
func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// handleDBError is a package-level helper for handling database errors
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrNotFound)
	}
	if repositories.IsDuplicateError(err) {
		return fmt.Errorf("%s failed: %w", operation, repositories.ErrDuplicate)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// applyPaginationAndSort applies pagination and sorting with SQL injection protection.
// Only keys present in allowed are ever written into the ORDER clause.
func applyPaginationAndSort(query *gorm.DB, allowed map[string]string, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed["created_at"]
		if column == "" {
			column = "created_at"
		}
	}

	order := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		order = "ASC"
	}

	query = query.Order(fmt.Sprintf("%s %s", column, order))

	return applyPagination(query, limit, offset)
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

// likePattern wraps the lowercased term for a case-insensitive contains match.
func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}
