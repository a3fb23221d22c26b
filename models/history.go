package models

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// History is the audit trail for lifecycle transitions. ReferenceId is a
// string so it can hold both session/pass uuids and integer row ids.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	StoreId       int       `gorm:"index;not null" json:"store_id"`
	ActionType    string    `gorm:"size:20;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceId   string    `gorm:"size:36;index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	storeId int,
	actionType string,
	referenceId string,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	// identity is optional here, cli tools and the sync worker run without one
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	history.StoreId = storeId
	history.ActionType = actionType
	history.Before = string(b)
	history.After = string(a)
	history.Description = description
	history.ReferenceId = referenceId
	history.ReferenceType = referenceType
	history.UserId = userId
	history.UserName = userName

	return tx.Create(&history).Error
}

func ListHistories(ctx context.Context, referenceId string, referenceType string) ([]*History, error) {
	db := config.GetDB()
	var results []*History
	err := db.WithContext(ctx).
		Where("reference_id = ? AND reference_type = ?", referenceId, referenceType).
		Order("created_at desc").
		Limit(config.SearchLimit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
