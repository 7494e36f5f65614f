package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/pharmapos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps driver errors onto domain errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// isUniqueViolation recognises unique constraint failures from postgres (23505) and sqlite
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// versioned is implemented by aggregates embedding shared.BaseAggregateRoot
type versioned interface {
	PersistedVersion() int
	MarkPersisted()
}

// saveVersioned inserts new aggregates and updates stored ones only when the
// row still carries the version that was read. A stale write returns
// shared.ErrConcurrencyConflict.
func saveVersioned(ctx context.Context, db *gorm.DB, model any, agg versioned) error {
	if agg.PersistedVersion() == 0 {
		if err := db.WithContext(ctx).Create(model).Error; err != nil {
			return translateError(err)
		}
		agg.MarkPersisted()
		return nil
	}

	result := db.WithContext(ctx).Model(model).
		Where("version = ?", agg.PersistedVersion()).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	agg.MarkPersisted()
	return nil
}

// likePattern builds a LIKE pattern from a search term folded the same way as
// stored search text, so "paracétamol" matches "Paracetamol".
func likePattern(s string) string {
	return "%" + shared.FoldSearch(s) + "%"
}

// searchPatterns returns the folded pattern and the plain lower-cased one.
// Columns without a folded copy are matched against both, so a name is always
// found by its own spelling.
func searchPatterns(s string) (folded, plain string) {
	return likePattern(s), "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
