package models

import (
	"context"
	"time"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// Store administration lives in a separate system; this table mirrors the
// registry so locations, sessions and movements can be validated against it.
type Store struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Code           string    `gorm:"size:10;uniqueIndex;not null" json:"code"`
	Address        string    `gorm:"type:text" json:"address"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Email          string    `gorm:"size:100" json:"email"`
	LicenseNumber  string    `gorm:"size:50" json:"license_number"`
	CovaLocationId string    `gorm:"size:100" json:"cova_location_id"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name           string `json:"name" binding:"required"`
	Code           string `json:"code" binding:"required"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	LicenseNumber  string `json:"license_number"`
	CovaLocationId string `json:"cova_location_id"`
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {
	if err := utils.ValidateUnique[Store](ctx, 0, "code", input.Code, 0); err != nil {
		return nil, err
	}

	store := Store{
		Name:           input.Name,
		Code:           input.Code,
		Address:        input.Address,
		Phone:          input.Phone,
		Email:          input.Email,
		LicenseNumber:  input.LicenseNumber,
		CovaLocationId: input.CovaLocationId,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func GetStore(ctx context.Context, id int) (*Store, error) {
	return GetResource[Store](ctx, id)
}

func ListStores(ctx context.Context) ([]*Store, error) {
	db := config.GetDB()
	var results []*Store
	err := db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
