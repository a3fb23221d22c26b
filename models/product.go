package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// Product is the catalog entry shared by every store. The POS identifier
// (cova_sku) is globally unique; the internal sku may be reused across brands
// so it is only indexed.
type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Sku         string          `gorm:"size:100;index;not null" json:"sku"`
	CovaSku     string          `gorm:"size:100;uniqueIndex" json:"cova_sku"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Brand       string          `gorm:"size:100" json:"brand"`
	Category    string          `gorm:"size:100;index" json:"category"`
	Subcategory string          `gorm:"size:100" json:"subcategory"`
	UnitOfCount string          `gorm:"size:20;not null;default:'each'" json:"unit_of_count"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(20,6)" json:"cost_price"`
	RetailPrice decimal.Decimal `gorm:"type:decimal(20,6)" json:"retail_price"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Sku         string          `json:"sku" binding:"required"`
	CovaSku     string          `json:"cova_sku"`
	Name        string          `json:"name" binding:"required"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	Subcategory string          `json:"subcategory"`
	UnitOfCount string          `json:"unit_of_count"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	RetailPrice decimal.Decimal `json:"retail_price"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if input.CovaSku != "" {
		if err := utils.ValidateUnique[Product](ctx, 0, "cova_sku", input.CovaSku, 0); err != nil {
			return nil, err
		}
	}

	unit := input.UnitOfCount
	if unit == "" {
		unit = "each"
	}

	product := Product{
		Sku:         strings.TrimSpace(input.Sku),
		CovaSku:     strings.TrimSpace(input.CovaSku),
		Name:        input.Name,
		Brand:       input.Brand,
		Category:    input.Category,
		Subcategory: input.Subcategory,
		UnitOfCount: unit,
		CostPrice:   input.CostPrice,
		RetailPrice: input.RetailPrice,
		IsActive:    utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	return GetResource[Product](ctx, id)
}

// FindProductByIdentifier resolves a scanned or typed code against the
// catalog. Exact match on sku or cova_sku, no fuzzy lookup; a misread barcode
// must fail loudly rather than land on a near miss.
func FindProductByIdentifier(ctx context.Context, code string) (*Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, utils.ValidationError("barcode is required")
	}

	db := config.GetDB()
	var product Product
	err := db.WithContext(ctx).
		Where("sku = ? OR cova_sku = ?", code, code).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundError("product", code)
		}
		return nil, err
	}
	return &product, nil
}

func ListProducts(ctx context.Context, category *string, name *string) ([]*Product, error) {
	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx).Where("is_active = ?", true)
	if category != nil && *category != "" {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Limit(config.SearchLimit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// InventoryItem is the per-store stock record. current_quantity is the live
// on-hand figure maintained by the POS sync; count sessions snapshot it as
// the variance baseline.
type InventoryItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	StoreId         int             `gorm:"not null;uniqueIndex:idx_inventory_store_product" json:"store_id"`
	ProductId       int             `gorm:"not null;uniqueIndex:idx_inventory_store_product" json:"product_id"`
	CurrentQuantity int             `gorm:"not null;default:0" json:"current_quantity"`
	CostPrice       decimal.Decimal `gorm:"type:decimal(20,6)" json:"cost_price"`
	RetailPrice     decimal.Decimal `gorm:"type:decimal(20,6)" json:"retail_price"`
	LastSyncedAt    *time.Time      `json:"last_synced_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
}

// GetCurrentQuantity returns the live on-hand quantity for a product in a
// store. Missing rows count as zero; a product never stocked is not an error.
func GetCurrentQuantity(ctx context.Context, storeId int, productId int) (int, error) {
	db := config.GetDB()
	var item InventoryItem
	err := db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeId, productId).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return item.CurrentQuantity, nil
}

// UpsertInventoryItem creates or refreshes the per-store stock row. Used by
// the POS sync and the seed tooling.
func UpsertInventoryItem(ctx context.Context, storeId int, productId int, quantity int,
	costPrice decimal.Decimal, retailPrice decimal.Decimal) (*InventoryItem, error) {

	db := config.GetDB()
	now := time.Now()

	var item InventoryItem
	err := db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeId, productId).
		First(&item).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		item = InventoryItem{
			StoreId:         storeId,
			ProductId:       productId,
			CurrentQuantity: quantity,
			CostPrice:       costPrice,
			RetailPrice:     retailPrice,
			LastSyncedAt:    &now,
		}
		if err := db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}

	err = db.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"CurrentQuantity": quantity,
		"CostPrice":       costPrice,
		"RetailPrice":     retailPrice,
		"LastSyncedAt":    &now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListInventoryItems returns the store's stock rows with product preloaded,
// used to build the session baseline snapshot.
func ListInventoryItems(ctx context.Context, storeId int) ([]*InventoryItem, error) {
	db := config.GetDB()
	var results []*InventoryItem
	err := db.WithContext(ctx).
		Where("store_id = ?", storeId).
		Preload("Product").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
