package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// CountPass is one bounded counting window: a location plus an optional
// category scope. started_at is set at creation and never changed; the
// [started_at, submitted_at] interval is what the variance engine reasons
// about. Lines cascade-delete with the pass.
type CountPass struct {
	ID               string     `gorm:"primary_key;size:36" json:"id"`
	CountSessionId   string     `gorm:"size:36;index;not null" json:"count_session_id"`
	LocationId       int        `gorm:"index;not null" json:"location_id"`
	CategoryScope    string     `gorm:"size:100" json:"category_scope"`
	SubcategoryScope string     `gorm:"size:100" json:"subcategory_scope"`
	Status           PassStatus `gorm:"size:20;not null;default:'in_progress'" json:"status"`
	ScanMode         ScanMode   `gorm:"size:20;not null;default:'scanner'" json:"scan_mode"`
	DeviceId         string     `gorm:"size:100" json:"device_id"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	StartedBy        int        `gorm:"not null" json:"started_by"`
	SubmittedBy      *int       `json:"submitted_by"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Lines []CountLine `gorm:"foreignKey:CountPassId;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

type NewCountPass struct {
	LocationId       int      `json:"location_id" binding:"required"`
	CategoryScope    string   `json:"category_scope"`
	SubcategoryScope string   `json:"subcategory_scope"`
	ScanMode         ScanMode `json:"scan_mode"`
	DeviceId         string   `json:"device_id"`
}

// PassSummary is the list serialization with line rollups.
type PassSummary struct {
	*CountPass
	LocationCode string `json:"location_code"`
	LocationName string `json:"location_name"`
	LineCount    int    `json:"line_count"`
	TotalCounted int    `json:"total_counted"`
}

// OpenCountPass starts a counting window inside a session. The session must
// be draft or in_progress, and the location must belong to the session's
// store. Opening the first pass of a draft session promotes it to
// in_progress in the same transaction.
func OpenCountPass(ctx context.Context, sessionId string, input *NewCountPass) (*CountPass, error) {

	session, err := GetCountSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusDraft && session.Status != SessionStatusInProgress {
		return nil, utils.InvalidStateError("count session", sessionId,
			"cannot open pass on a "+string(session.Status)+" session")
	}

	location, err := GetLocation(ctx, input.LocationId)
	if err != nil {
		return nil, utils.NotFoundError("location", "")
	}
	if location.StoreId != session.StoreId {
		return nil, utils.ValidationError("location does not belong to the session's store")
	}

	if input.ScanMode == "" {
		input.ScanMode = ScanModeScanner
	}
	if !input.ScanMode.IsValid() {
		return nil, utils.ValidationError("invalid scan mode")
	}

	// a scoped location forces its scope onto every pass opened there
	categoryScope := input.CategoryScope
	subcategoryScope := input.SubcategoryScope
	if location.HasScopeFilter() {
		if categoryScope == "" {
			categoryScope = location.CategoryFilter
		}
		if subcategoryScope == "" {
			subcategoryScope = location.SubcategoryFilter
		}
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	pass := CountPass{
		ID:               uuid.NewString(),
		CountSessionId:   session.ID,
		LocationId:       location.ID,
		CategoryScope:    categoryScope,
		SubcategoryScope: subcategoryScope,
		Status:           PassStatusInProgress,
		ScanMode:         input.ScanMode,
		DeviceId:         input.DeviceId,
		StartedAt:        time.Now(),
		StartedBy:        userId,
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pass).Error; err != nil {
			return err
		}
		if session.Status == SessionStatusDraft {
			if err := tx.Model(session).
				UpdateColumn("Status", SessionStatusInProgress).Error; err != nil {
				return err
			}
		}
		return createHistory(tx, session.StoreId, "OPEN", pass.ID, "CountPass",
			nil, pass, "count pass opened at "+location.Code)
	})
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

func GetCountPass(ctx context.Context, id string) (*CountPass, error) {
	pass, err := utils.FetchModel[CountPass](ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFoundError("count pass", id)
		}
		return nil, err
	}
	return pass, nil
}

func SubmitCountPass(ctx context.Context, id string) (*CountPass, error) {

	pass, err := GetCountPass(ctx, id)
	if err != nil {
		return nil, err
	}
	if pass.Status != PassStatusInProgress {
		return nil, utils.InvalidStateError("count pass", id,
			"cannot submit a "+string(pass.Status)+" pass")
	}

	// an empty pass may be submitted, a walked zone with nothing on the
	// shelf is still a completed count
	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	session, err := GetCountSession(ctx, pass.CountSessionId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(pass).Updates(map[string]interface{}{
			"Status":      PassStatusSubmitted,
			"SubmittedAt": &now,
			"SubmittedBy": &userId,
		}).Error; err != nil {
			return err
		}
		return createHistory(tx, session.StoreId, "SUBMIT", pass.ID, "CountPass",
			PassStatusInProgress, PassStatusSubmitted, "count pass submitted")
	})
	if err != nil {
		return nil, err
	}
	return pass, nil
}

// VoidCountPass discards an open pass. Submitted and voided passes are
// terminal and cannot be voided.
func VoidCountPass(ctx context.Context, id string) (*CountPass, error) {

	pass, err := GetCountPass(ctx, id)
	if err != nil {
		return nil, err
	}
	if pass.Status.IsTerminal() {
		return nil, utils.InvalidStateError("count pass", id,
			"cannot void a "+string(pass.Status)+" pass")
	}

	session, err := GetCountSession(ctx, pass.CountSessionId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(pass).
			UpdateColumn("Status", PassStatusVoided).Error; err != nil {
			return err
		}
		return createHistory(tx, session.StoreId, "VOID", pass.ID, "CountPass",
			PassStatusInProgress, PassStatusVoided, "count pass voided")
	})
	if err != nil {
		return nil, err
	}
	return pass, nil
}

func ListCountPasses(ctx context.Context, sessionId string) ([]*PassSummary, error) {

	if _, err := GetCountSession(ctx, sessionId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var passes []*CountPass
	err := db.WithContext(ctx).
		Where("count_session_id = ?", sessionId).
		Order("started_at").
		Find(&passes).Error
	if err != nil {
		return nil, err
	}

	results := make([]*PassSummary, 0, len(passes))
	for _, pass := range passes {
		summary := PassSummary{CountPass: pass}

		location, err := GetLocation(ctx, pass.LocationId)
		if err == nil {
			summary.LocationCode = location.Code
			summary.LocationName = location.Name
		}

		type rollup struct {
			LineCount    int
			TotalCounted int
		}
		var r rollup
		err = db.WithContext(ctx).Model(&CountLine{}).
			Select("COUNT(*) as line_count, COALESCE(SUM(counted_qty), 0) as total_counted").
			Where("count_pass_id = ?", pass.ID).
			Scan(&r).Error
		if err != nil {
			return nil, err
		}
		summary.LineCount = r.LineCount
		summary.TotalCounted = r.TotalCounted

		results = append(results, &summary)
	}
	return results, nil
}
