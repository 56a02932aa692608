package persistence

import (
	"context"
	"errors"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// translateError maps GORM errors to domain sentinels; anything else is returned unchanged
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	default:
		return err
	}
}

// updateVersioned writes every column of model when the stored row still has
// the version the aggregate was loaded with. The aggregate has already bumped
// its version, so the expected stored version is version-1.
func updateVersioned(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, version int) error {
	result := db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", id, version-1).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// paginate applies ordering and paging to query and loads the page into dest,
// returning the total number of matching rows
func paginate(query *gorm.DB, filter shared.Filter, allowedSort map[string]bool, dest any) (int64, error) {
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}

	filter = filter.Normalize()
	sortField := ValidateSortField(filter.OrderBy, allowedSort, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	err := query.
		Order(sortField + " " + sortOrder).
		Order("id").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(dest).Error
	return total, err
}

// likePattern builds a case-insensitive LIKE pattern usable on PostgreSQL and SQLite
func likePattern(search string) string {
	return "%" + search + "%"
}
