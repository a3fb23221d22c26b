package models

import (
	"context"
	"time"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
	"gorm.io/gorm"
)

// Movement is one append-only inventory ledger entry. The reconciliation
// path never mutates or deletes rows; the only delete is the bounded one a
// forced re-sync performs for its own window and source. SKU is copied onto
// the row at write time for the audit trail.
type Movement struct {
	ID           int            `gorm:"primary_key" json:"id"`
	StoreId      int            `gorm:"not null;index:idx_movement_store_time" json:"store_id"`
	ProductId    int            `gorm:"index" json:"product_id"`
	Sku          string         `gorm:"size:100;index;not null" json:"sku"`
	MovementType MovementType   `gorm:"size:20;not null" json:"movement_type"`
	QtyDelta     int            `gorm:"not null" json:"qty_delta"`
	OccurredAt   time.Time      `gorm:"not null;index:idx_movement_store_time" json:"occurred_at"`
	Source       MovementSource `gorm:"size:20;not null" json:"source"`
	SourceRef    string         `gorm:"size:100;index" json:"source_ref"`
	Notes        string         `gorm:"type:text" json:"notes"`
	CreatedBy    int            `json:"created_by"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type NewMovement struct {
	StoreId      int          `json:"store_id" binding:"required"`
	Barcode      string       `json:"barcode" binding:"required"`
	MovementType MovementType `json:"movement_type" binding:"required"`
	QtyDelta     int          `json:"qty_delta" binding:"required"`
	OccurredAt   *time.Time   `json:"occurred_at"`
	Notes        string       `json:"notes"`
}

// CreateMovement records a manual ledger entry (shrinkage found on the
// floor, a correction after a recount). Synced movements come in through
// the sales sync, not here.
func CreateMovement(ctx context.Context, input *NewMovement) (*Movement, error) {

	if err := utils.ValidateResourceId[Store](ctx, 0, input.StoreId); err != nil {
		return nil, utils.NotFoundError("store", "")
	}
	if !input.MovementType.IsValid() {
		return nil, utils.ValidationError("invalid movement type")
	}
	if input.QtyDelta == 0 {
		return nil, utils.ValidationError("qty_delta cannot be zero")
	}

	product, err := FindProductByIdentifier(ctx, input.Barcode)
	if err != nil {
		return nil, err
	}

	occurredAt := time.Now()
	if input.OccurredAt != nil {
		occurredAt = *input.OccurredAt
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	movement := Movement{
		StoreId:      input.StoreId,
		ProductId:    product.ID,
		Sku:          product.Sku,
		MovementType: input.MovementType,
		QtyDelta:     input.QtyDelta,
		OccurredAt:   occurredAt,
		Source:       MovementSourceManual,
		Notes:        input.Notes,
		CreatedBy:    userId,
	}

	// db action
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

func ListMovements(ctx context.Context, storeId int, sku *string,
	from *time.Time, to *time.Time) ([]*Movement, error) {

	db := config.GetDB()
	var results []*Movement

	dbCtx := db.WithContext(ctx).Where("store_id = ?", storeId)
	if sku != nil && *sku != "" {
		dbCtx = dbCtx.Where("sku = ?", *sku)
	}
	if from != nil {
		dbCtx = dbCtx.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("occurred_at <= ?", *to)
	}
	err := dbCtx.Order("occurred_at desc").Limit(config.SearchLimit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// MovementWindowDeltas sums qty_delta per SKU for a store over a closed time
// window. The variance engine calls this once per merged pass window.
func MovementWindowDeltas(ctx context.Context, storeId int,
	from time.Time, to time.Time) (map[string]int, error) {

	type row struct {
		Sku      string
		NetDelta int
	}

	db := config.GetDB()
	var rows []row
	err := db.WithContext(ctx).Model(&Movement{}).
		Select("sku, COALESCE(SUM(qty_delta), 0) as net_delta").
		Where("store_id = ? AND occurred_at >= ? AND occurred_at <= ?", storeId, from, to).
		Group("sku").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	deltas := make(map[string]int, len(rows))
	for _, r := range rows {
		deltas[r.Sku] = r.NetDelta
	}
	return deltas, nil
}

// MovementExists checks the (store, sku, source_ref) idempotency key.
func MovementExists(ctx context.Context, storeId int, sku string, sourceRef string) (bool, error) {
	count, err := utils.ResourceCountWhere[Movement](ctx, storeId,
		"sku = ? AND source_ref = ?", sku, sourceRef)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteSyncedMovements removes movements for one store, source and window.
// Only the forced re-sync path calls this, inside its own transaction; the
// bounds keep it from ever touching manual entries or another store's rows.
func DeleteSyncedMovements(db *gorm.DB, storeId int, source MovementSource,
	from time.Time, to time.Time) (int64, error) {

	result := db.
		Where("store_id = ? AND source = ? AND occurred_at >= ? AND occurred_at <= ?",
			storeId, source, from, to).
		Delete(&Movement{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
