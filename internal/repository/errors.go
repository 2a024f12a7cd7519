package repository

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// translateWriteError maps constraint violations reported by the driver onto domain conflicts.
// Requires gorm.Config.TranslateError.
func translateWriteError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.NewConflictError(fmt.Sprintf("%s already exists", entity))
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.NewConflictError(fmt.Sprintf("%s is referenced by or references a missing record", entity))
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return domain.NewConflictError(fmt.Sprintf("%s violates a lifecycle constraint", entity))
	default:
		return err
	}
}

func notFoundOr(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewNotFoundError(entity, fmt.Sprint(id))
	}
	return err
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
