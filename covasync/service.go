package covasync

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/models"
	"github.com/ikelabs/counts_backend/utils"
)

const moduleName = "covasync"

// Service ingests external sale records into the movement ledger. The store
// id mapping and the feed are injected so deployments (and tests) can supply
// their own.
type Service struct {
	storeIds StoreIdMap
	feed     SalesFeed
}

func NewService(storeIds StoreIdMap, feed SalesFeed) *Service {
	return &Service{storeIds: storeIds, feed: feed}
}

func Migrate() {
	db := config.GetDB()
	if err := db.AutoMigrate(&CovaSale{}); err != nil {
		log.Fatal(err)
	}
}

// NormalizeQtyDelta sign-normalizes a sold quantity: a sale is always a
// stock decrease no matter how the feed reports the sign.
func NormalizeQtyDelta(quantity int) int {
	if quantity < 0 {
		return quantity
	}
	return -quantity
}

// defaultWindow is yesterday through today when the caller gives no range.
func defaultWindow(from *time.Time, to *time.Time) (time.Time, time.Time) {
	now := time.Now()
	start, _ := utils.DayBounds(now.AddDate(0, 0, -1))
	_, end := utils.DayBounds(now)
	if from != nil {
		start, _ = utils.DayBounds(*from)
	}
	if to != nil {
		_, end = utils.DayBounds(*to)
	}
	return start, end
}

// SyncSalesToMovements pulls the store's external sale rows for the window
// and appends them to the movement ledger. Dedup is by (store, sku,
// source_ref); forceResync first deletes this store/window/source's synced
// movements and rebuilds them. Per-row product misses are collected and
// reported, they never abort the batch; a query failure rolls the whole
// batch back.
func (s *Service) SyncSalesToMovements(ctx context.Context, storeId int,
	from *time.Time, to *time.Time, forceResync bool) (*SyncStats, error) {

	logger := config.GetLogger()

	if err := utils.ValidateResourceId[models.Store](ctx, 0, storeId); err != nil {
		return nil, utils.NotFoundError("store", "")
	}

	covaIds := s.storeIds.CovaIdsFor(storeId)
	if len(covaIds) == 0 {
		return nil, utils.ValidationError("store has no cova id mapping")
	}

	start, end := defaultWindow(from, to)
	if end.Before(start) {
		return nil, utils.ValidationError("to_date is before from_date")
	}

	sales, err := s.feed.FetchSales(ctx, covaIds, start, end)
	if err != nil {
		config.LogError(logger, moduleName, "SyncSalesToMovements", "fetch sales", storeId, err)
		return nil, err
	}

	stats := SyncStats{
		Found:    len(sales),
		From:     start,
		To:       end,
		SyncedAt: time.Now(),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {

		if forceResync {
			deleted, err := models.DeleteSyncedMovements(tx, storeId, models.MovementSourceCova, start, end)
			if err != nil {
				return err
			}
			stats.Deleted = deleted
		}

		for _, sale := range sales {
			product, err := models.FindProductByIdentifier(ctx, sale.Sku)
			if err != nil {
				if utils.IsNotFound(err) {
					stats.NotFound++
					stats.UnmatchedSkus = append(stats.UnmatchedSkus, sale.Sku)
					continue
				}
				return err
			}

			sourceRef := sale.SourceRef()

			var existing int64
			err = tx.Model(&models.Movement{}).
				Where("store_id = ? AND sku = ? AND source_ref = ?", storeId, product.Sku, sourceRef).
				Count(&existing).Error
			if err != nil {
				return err
			}
			if existing > 0 {
				stats.Skipped++
				continue
			}

			movement := models.Movement{
				StoreId:      storeId,
				ProductId:    product.ID,
				Sku:          product.Sku,
				MovementType: models.MovementTypeSale,
				QtyDelta:     NormalizeQtyDelta(sale.Quantity),
				OccurredAt:   sale.SoldAt,
				Source:       models.MovementSourceCova,
				SourceRef:    sourceRef,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
			stats.Created++
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, moduleName, "SyncSalesToMovements", "sync batch", storeId, err)
		return nil, err
	}

	stats.UnmatchedSkus = utils.UniqueSlice(stats.UnmatchedSkus)

	logger.WithField("store_id", storeId).
		WithField("created", stats.Created).
		WithField("skipped", stats.Skipped).
		WithField("not_found", stats.NotFound).
		Info("sales sync finished")

	return &stats, nil
}

// GetSyncStatus reports the newest synced movement and today's synced count.
func (s *Service) GetSyncStatus(ctx context.Context, storeId int) (*SyncStatus, error) {

	if err := utils.ValidateResourceId[models.Store](ctx, 0, storeId); err != nil {
		return nil, utils.NotFoundError("store", "")
	}

	db := config.GetDB()

	var last models.Movement
	status := SyncStatus{StoreId: storeId}
	err := db.WithContext(ctx).
		Where("store_id = ? AND source = ?", storeId, models.MovementSourceCova).
		Order("occurred_at desc").
		First(&last).Error
	if err == nil {
		status.LastMovementAt = &last.OccurredAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	todayStart, todayEnd := utils.DayBounds(time.Now())
	err = db.WithContext(ctx).Model(&models.Movement{}).
		Where("store_id = ? AND source = ? AND created_at >= ? AND created_at <= ?",
			storeId, models.MovementSourceCova, todayStart, todayEnd).
		Count(&status.TodayCount).Error
	if err != nil {
		return nil, err
	}

	return &status, nil
}
