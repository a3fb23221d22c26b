package models

import (
	"context"
	"strings"
	"time"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// Location is a physical zone inside a store (vault, sales floor, backroom).
// Locations are immutable once created except for deactivation; count passes
// reference them and a renamed zone would corrupt historical passes.
type Location struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	StoreId            int       `gorm:"not null;uniqueIndex:idx_location_store_code" json:"store_id"`
	Code               string    `gorm:"size:30;not null;uniqueIndex:idx_location_store_code" json:"code"`
	Name               string    `gorm:"size:100;not null" json:"name"`
	Description        string    `gorm:"type:text" json:"description"`
	CategoryFilter     string    `gorm:"size:100" json:"category_filter"`
	SubcategoryFilter  string    `gorm:"size:100" json:"subcategory_filter"`
	SortOrder          int       `gorm:"not null;default:0" json:"sort_order"`
	RequiresDoubleScan *bool     `gorm:"not null;default:false" json:"requires_double_scan"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLocation struct {
	Code               string `json:"code" binding:"required"`
	Name               string `json:"name" binding:"required"`
	Description        string `json:"description"`
	CategoryFilter     string `json:"category_filter"`
	SubcategoryFilter  string `json:"subcategory_filter"`
	SortOrder          int    `json:"sort_order"`
	RequiresDoubleScan bool   `json:"requires_double_scan"`
}

func (input *NewLocation) validate(ctx context.Context, storeId int) error {
	// codes compare case-insensitively, stored upper-cased
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if input.Code == "" {
		return utils.ValidationError("location code is required")
	}
	if err := utils.ValidateResourceId[Store](ctx, 0, storeId); err != nil {
		return utils.NotFoundError("store", "")
	}
	if err := utils.ValidateUnique[Location](ctx, storeId, "code", input.Code, 0); err != nil {
		return utils.ConflictError("location", input.Code, "location code already exists in store")
	}
	return nil
}

func CreateLocation(ctx context.Context, storeId int, input *NewLocation) (*Location, error) {

	if err := input.validate(ctx, storeId); err != nil {
		return nil, err
	}

	location := Location{
		StoreId:            storeId,
		Code:               input.Code,
		Name:               input.Name,
		Description:        input.Description,
		CategoryFilter:     strings.TrimSpace(input.CategoryFilter),
		SubcategoryFilter:  strings.TrimSpace(input.SubcategoryFilter),
		SortOrder:          input.SortOrder,
		RequiresDoubleScan: &input.RequiresDoubleScan,
		IsActive:           utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func GetLocation(ctx context.Context, id int) (*Location, error) {
	return GetResource[Location](ctx, id)
}

func ListLocations(ctx context.Context, storeId int, includeInactive bool) ([]*Location, error) {
	db := config.GetDB()
	var results []*Location

	dbCtx := db.WithContext(ctx).Where("store_id = ?", storeId)
	if !includeInactive {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	if err := dbCtx.Order("sort_order, code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveLocation(ctx context.Context, id int, isActive bool) (*Location, error) {
	return ToggleActiveModel[Location](ctx, id, isActive)
}

// HasScopeFilter reports whether counting at this location is restricted to a
// product category or subcategory.
func (l *Location) HasScopeFilter() bool {
	return strings.TrimSpace(l.CategoryFilter) != "" || strings.TrimSpace(l.SubcategoryFilter) != ""
}

// checkScopeFilters verifies the product belongs to a category/subcategory
// scope. A filter only applies when both the filter and the product field are
// non-empty; comparison is case-insensitive. Passes inherit these filters
// from their location, so this is the single scope check for both.
func checkScopeFilters(categoryFilter string, subcategoryFilter string, product *Product) error {
	filter := strings.TrimSpace(categoryFilter)
	if filter != "" && strings.TrimSpace(product.Category) != "" {
		if !strings.EqualFold(filter, strings.TrimSpace(product.Category)) {
			return utils.ScopeMismatchError("category", filter, product.Category, product.Name)
		}
	}
	filter = strings.TrimSpace(subcategoryFilter)
	if filter != "" && strings.TrimSpace(product.Subcategory) != "" {
		if !strings.EqualFold(filter, strings.TrimSpace(product.Subcategory)) {
			return utils.ScopeMismatchError("subcategory", filter, product.Subcategory, product.Name)
		}
	}
	return nil
}
