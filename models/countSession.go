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

// CountSession is the top-level container for one inventory count effort.
// Status walks forward only: draft -> in_progress -> submitted -> reconciled
// -> closed. Passes cascade-delete with the session.
type CountSession struct {
	ID             string         `gorm:"primary_key;size:36" json:"id"`
	StoreId        int            `gorm:"index;not null" json:"store_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Status         SessionStatus  `gorm:"size:20;not null;default:'draft'" json:"status"`
	SnapshotSource SnapshotSource `gorm:"size:20;not null;default:'manual'" json:"snapshot_source"`
	SnapshotAt     time.Time      `gorm:"not null" json:"snapshot_at"`
	Notes          string         `gorm:"type:text" json:"notes"`
	CreatedBy      int            `gorm:"not null" json:"created_by"`
	ClosedAt       *time.Time     `json:"closed_at"`
	ClosedBy       *int           `json:"closed_by"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	Passes []CountPass `gorm:"foreignKey:CountSessionId;constraint:OnDelete:CASCADE" json:"passes,omitempty"`
}

type NewCountSession struct {
	StoreId        int            `json:"store_id" binding:"required"`
	Name           string         `json:"name" binding:"required"`
	SnapshotSource SnapshotSource `json:"snapshot_source"`
	Notes          string         `json:"notes"`
}

// SessionSummary is the list/detail serialization with pass rollups.
type SessionSummary struct {
	*CountSession
	PassCount          int `json:"pass_count"`
	SubmittedPassCount int `json:"submitted_pass_count"`
}

func (input *NewCountSession) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Store](ctx, 0, input.StoreId); err != nil {
		return utils.NotFoundError("store", "")
	}
	if input.SnapshotSource == "" {
		input.SnapshotSource = SnapshotSourceManual
	}
	switch input.SnapshotSource {
	case SnapshotSourceCova, SnapshotSourceLocalbot, SnapshotSourceManual:
	default:
		return utils.ValidationError("invalid snapshot source")
	}
	return nil
}

func CreateCountSession(ctx context.Context, input *NewCountSession) (*CountSession, error) {

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	session := CountSession{
		ID:             uuid.NewString(),
		StoreId:        input.StoreId,
		Name:           input.Name,
		Status:         SessionStatusDraft,
		SnapshotSource: input.SnapshotSource,
		SnapshotAt:     time.Now(),
		Notes:          input.Notes,
		CreatedBy:      userId,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		return createHistory(tx, session.StoreId, "CREATE", session.ID, "CountSession",
			nil, session, "count session created")
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func GetCountSession(ctx context.Context, id string) (*CountSession, error) {
	session, err := utils.FetchModel[CountSession](ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFoundError("count session", id)
		}
		return nil, err
	}
	return session, nil
}

func GetCountSessionSummary(ctx context.Context, id string) (*SessionSummary, error) {
	session, err := GetCountSession(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var passCount, submittedCount int64
	if err := db.WithContext(ctx).Model(&CountPass{}).
		Where("count_session_id = ?", id).Count(&passCount).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&CountPass{}).
		Where("count_session_id = ? AND status = ?", id, PassStatusSubmitted).
		Count(&submittedCount).Error; err != nil {
		return nil, err
	}

	return &SessionSummary{
		CountSession:       session,
		PassCount:          int(passCount),
		SubmittedPassCount: int(submittedCount),
	}, nil
}

func ListCountSessions(ctx context.Context, storeId int, status *SessionStatus) ([]*CountSession, error) {
	db := config.GetDB()
	var results []*CountSession

	dbCtx := db.WithContext(ctx).Where("store_id = ?", storeId)
	if status != nil && *status != "" {
		if !status.IsValid() {
			return nil, utils.ValidationError("invalid session status filter")
		}
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Order("created_at desc").Limit(config.SearchLimit).Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// transitionSession moves a session one step forward, recording the change.
// Callers pass extra column updates (closed_at etc) through updates.
func transitionSession(ctx context.Context, id string, next SessionStatus,
	updates map[string]interface{}) (*CountSession, error) {

	session, err := GetCountSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransitionTo(next) {
		return nil, utils.InvalidStateError("count session", id,
			"cannot transition from "+string(session.Status)+" to "+string(next))
	}

	before := *session

	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["Status"] = next

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Updates(updates).Error; err != nil {
			return err
		}
		return createHistory(tx, session.StoreId, "TRANSITION", session.ID, "CountSession",
			before.Status, next, "count session "+string(next))
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// StartCountSession promotes a draft explicitly. Opening the first pass does
// this implicitly; the endpoint exists for crews who stage sessions ahead.
func StartCountSession(ctx context.Context, id string) (*CountSession, error) {
	return transitionSession(ctx, id, SessionStatusInProgress, nil)
}

// SubmitCountSession finalizes counting. Fails while any pass is still open;
// voided and submitted passes do not block.
func SubmitCountSession(ctx context.Context, id string) (*CountSession, error) {

	db := config.GetDB()
	var openPasses int64
	err := db.WithContext(ctx).Model(&CountPass{}).
		Where("count_session_id = ? AND status = ?", id, PassStatusInProgress).
		Count(&openPasses).Error
	if err != nil {
		return nil, err
	}
	if openPasses > 0 {
		return nil, utils.InvalidStateError("count session", id,
			"session has passes still in progress")
	}

	return transitionSession(ctx, id, SessionStatusSubmitted, nil)
}

func ReconcileCountSession(ctx context.Context, id string) (*CountSession, error) {
	return transitionSession(ctx, id, SessionStatusReconciled, nil)
}

func CloseCountSession(ctx context.Context, id string) (*CountSession, error) {
	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()
	return transitionSession(ctx, id, SessionStatusClosed, map[string]interface{}{
		"ClosedAt": &now,
		"ClosedBy": &userId,
	})
}

func DeleteCountSession(ctx context.Context, id string) (*CountSession, error) {

	session, err := GetCountSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != SessionStatusDraft {
		return nil, utils.InvalidStateError("count session", id,
			"only draft sessions can be deleted")
	}

	// passes and lines cascade with the session
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("count_pass_id IN (?)",
			tx.Model(&CountPass{}).Select("id").Where("count_session_id = ?", id)).
			Delete(&CountLine{}).Error; err != nil {
			return err
		}
		if err := tx.Where("count_session_id = ?", id).Delete(&CountPass{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(session).Error; err != nil {
			return err
		}
		return createHistory(tx, session.StoreId, "DELETE", session.ID, "CountSession",
			session, nil, "count session deleted")
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}
