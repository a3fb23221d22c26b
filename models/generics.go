package models

import (
	"context"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// first find in redis, then in db, cache result
// (may return NotFound error)
func GetResource[T any](ctx context.Context, id any) (*T, error) {

	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	// if not found in redis
	if result == nil {
		// fetch from db
		result, err = utils.FetchModel[T](ctx, id)
		if err != nil {
			return nil, err
		}

		// store in redis
		if err := utils.StoreRedis[T](result, id); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// flip is_active and drop the cached copy
func ToggleActiveModel[T any](ctx context.Context, id any, isActive bool) (*T, error) {

	result, err := utils.FetchModel[T](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(result).
		UpdateColumn("IsActive", isActive).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedis[T](id); err != nil {
		return nil, err
	}

	return result, nil
}
