package covasync

import (
	"context"
	"time"

	"github.com/ikelabs/counts_backend/config"
)

// SalesFeed abstracts where external sale rows come from. Production reads
// the cova_sales staging table that the nightly export lands in; tests
// supply an in-memory feed.
type SalesFeed interface {
	FetchSales(ctx context.Context, covaStoreIds []string, from time.Time, to time.Time) ([]SaleRecord, error)
}

// CovaSale is one row of the staging table. Rows are written by the export
// job and only read here; the sync never mutates them.
type CovaSale struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TransactionId string    `gorm:"size:100;not null;index" json:"transaction_id"`
	LineNumber    int       `gorm:"not null" json:"line_number"`
	CovaStoreId   string    `gorm:"size:100;not null;index" json:"cova_store_id"`
	Sku           string    `gorm:"size:100;not null" json:"sku"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	SoldAt        time.Time `gorm:"not null;index" json:"sold_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type dbSalesFeed struct{}

// NewDBSalesFeed returns the staging-table feed.
func NewDBSalesFeed() SalesFeed {
	return dbSalesFeed{}
}

func (dbSalesFeed) FetchSales(ctx context.Context, covaStoreIds []string,
	from time.Time, to time.Time) ([]SaleRecord, error) {

	if len(covaStoreIds) == 0 {
		return nil, nil
	}

	db := config.GetDB()
	var rows []CovaSale
	err := db.WithContext(ctx).
		Where("cova_store_id IN ? AND sold_at >= ? AND sold_at <= ?", covaStoreIds, from, to).
		Order("sold_at, transaction_id, line_number").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]SaleRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, SaleRecord{
			TransactionId: row.TransactionId,
			LineNumber:    row.LineNumber,
			CovaStoreId:   row.CovaStoreId,
			SoldAt:        row.SoldAt,
			Sku:           row.Sku,
			Quantity:      row.Quantity,
		})
	}
	return records, nil
}
