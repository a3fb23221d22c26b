package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/ikelabs/counts_backend/config"
	"gorm.io/gorm"
)

// check if id exists, optionally scoped to a store, return NotFound error
func ValidateResourceId[T any](ctx context.Context, storeId int, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, storeId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, storeId int, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, storeId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, storeId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return ConflictError(GetTypeName[T](), "", "duplicate "+column)
	}
	return nil
}

// count records, using WHERE store_id = ? AND $condition
// store_id can be zero for unscoped (catalog-level) models
func ResourceCountWhere[T any](ctx context.Context, storeId int, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if storeId != 0 {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// fetch by primary key, mapping gorm's not-found to our NotFound error
func FetchModel[T any](ctx context.Context, id interface{}) (*T, error) {
	var result T
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&result, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}
