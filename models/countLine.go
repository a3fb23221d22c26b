package models

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// CountLine accumulates the physical count of one SKU within a pass. The SKU
// and product fields are copied at capture time so the line keeps reflecting
// what was scanned even if the catalog entry later changes. At most one line
// exists per (pass, sku); re-scans increment counted_qty on the existing row.
type CountLine struct {
	ID          int            `gorm:"primary_key" json:"id"`
	CountPassId string         `gorm:"size:36;not null;uniqueIndex:idx_line_pass_sku" json:"count_pass_id"`
	ProductId   int            `gorm:"index;not null" json:"product_id"`
	Sku         string         `gorm:"size:100;not null;uniqueIndex:idx_line_pass_sku" json:"sku"`
	ProductName string         `gorm:"size:255" json:"product_name"`
	Barcode     string         `gorm:"size:100" json:"barcode"`
	PackageId   string         `gorm:"size:100" json:"package_id"`
	CountedQty  int            `gorm:"not null;default:0" json:"counted_qty"`
	Unit        string         `gorm:"size:20;not null;default:'each'" json:"unit"`
	Confidence  LineConfidence `gorm:"size:20;not null;default:'scanned'" json:"confidence"`
	Notes       string         `gorm:"type:text" json:"notes"`
	CapturedBy  int            `gorm:"not null" json:"captured_by"`
	CapturedAt  time.Time      `gorm:"not null" json:"captured_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCountLine struct {
	Barcode    string         `json:"barcode" binding:"required"`
	Qty        *int           `json:"qty"`
	PackageId  string         `json:"package_id"`
	Confidence LineConfidence `json:"confidence"`
	Notes      string         `json:"notes"`
}

type CorrectCountLine struct {
	Qty   *int    `json:"qty"`
	Notes *string `json:"notes"`
}

// RecordLineResult tells the scanner client whether the scan created a new
// line or bumped an existing one, and what the quantity was before the bump.
type RecordLineResult struct {
	Line        *CountLine `json:"line"`
	Incremented bool       `json:"incremented"`
	PreviousQty int        `json:"previous_qty"`
	Product     *Product   `json:"product,omitempty"`
}

func openPassForLine(ctx context.Context, passId string) (*CountPass, error) {
	pass, err := GetCountPass(ctx, passId)
	if err != nil {
		return nil, err
	}
	if pass.Status != PassStatusInProgress {
		return nil, utils.InvalidStateError("count pass", passId,
			"pass is "+string(pass.Status)+", lines can only change while in progress")
	}
	return pass, nil
}

// checkPassScope rejects products outside the pass's category scope.
func checkPassScope(pass *CountPass, product *Product) error {
	return checkScopeFilters(pass.CategoryScope, pass.SubcategoryScope, product)
}

// RecordCountLine resolves the barcode and adds qty (default 1) for that SKU
// in the pass. Concurrent scans of the same SKU are safe: the increment is a
// single conditional UPDATE guarded by the unique (pass, sku) index, with
// create-then-retry on the first scan.
func RecordCountLine(ctx context.Context, passId string, input *NewCountLine) (*RecordLineResult, error) {

	pass, err := openPassForLine(ctx, passId)
	if err != nil {
		return nil, err
	}

	product, err := FindProductByIdentifier(ctx, input.Barcode)
	if err != nil {
		return nil, err
	}

	if err := checkPassScope(pass, product); err != nil {
		return nil, err
	}

	qty := utils.DereferencePtr(input.Qty, 1)
	if qty <= 0 {
		return nil, utils.ValidationError("qty must be positive")
	}

	confidence := input.Confidence
	if confidence == "" {
		confidence = LineConfidenceScanned
	}
	if !confidence.IsValid() {
		return nil, utils.ValidationError("invalid confidence")
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	now := time.Now()

	db := config.GetDB()

	// atomic increment first; zero rows affected means first scan of this sku
	tryIncrement := func(tx *gorm.DB) (bool, error) {
		updates := map[string]interface{}{
			"counted_qty": gorm.Expr("counted_qty + ?", qty),
			"captured_by": userId,
			"captured_at": now,
		}
		if strings.TrimSpace(input.Notes) != "" {
			updates["notes"] = input.Notes
		}
		result := tx.Model(&CountLine{}).
			Where("count_pass_id = ? AND sku = ?", passId, product.Sku).
			Updates(updates)
		if result.Error != nil {
			return false, result.Error
		}
		return result.RowsAffected > 0, nil
	}

	var line CountLine
	var incremented bool

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := tryIncrement(tx)
		if err != nil {
			return err
		}
		if !ok {
			line = CountLine{
				CountPassId: passId,
				ProductId:   product.ID,
				Sku:         product.Sku,
				ProductName: product.Name,
				Barcode:     strings.TrimSpace(input.Barcode),
				PackageId:   input.PackageId,
				CountedQty:  qty,
				Unit:        product.UnitOfCount,
				Confidence:  confidence,
				Notes:       input.Notes,
				CapturedBy:  userId,
				CapturedAt:  now,
			}
			if err := tx.Create(&line).Error; err != nil {
				// lost the race on the unique index, fall back to increment
				ok, retryErr := tryIncrement(tx)
				if retryErr != nil {
					return retryErr
				}
				if !ok {
					return err
				}
				incremented = true
			}
		} else {
			incremented = true
		}

		if incremented {
			return tx.Where("count_pass_id = ? AND sku = ?", passId, product.Sku).
				First(&line).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// PreviousQty comes from the re-read line, so a scan racing this one may
	// already be included. It is a display hint, not an authoritative delta.
	result := RecordLineResult{
		Line:        &line,
		Incremented: incremented,
		PreviousQty: line.CountedQty - qty,
	}
	if !incremented {
		result.Product = product
	}
	return &result, nil
}

func fetchLine(ctx context.Context, lineId int) (*CountLine, error) {
	line, err := utils.FetchModel[CountLine](ctx, lineId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFoundError("count line", strconv.Itoa(lineId))
		}
		return nil, err
	}
	return line, nil
}

// UpdateCountLine overwrites a line's fields. Unlike RecordCountLine this
// is a replacement, not an additive merge, and confidence always becomes
// corrected.
func UpdateCountLine(ctx context.Context, lineId int, input *CorrectCountLine) (*CountLine, error) {

	line, err := fetchLine(ctx, lineId)
	if err != nil {
		return nil, err
	}

	if _, err := openPassForLine(ctx, line.CountPassId); err != nil {
		return nil, err
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	updates := map[string]interface{}{
		"Confidence": LineConfidenceCorrected,
		"CapturedBy": userId,
		"CapturedAt": time.Now(),
	}
	if input.Qty != nil {
		if *input.Qty < 0 {
			return nil, utils.ValidationError("qty cannot be negative")
		}
		updates["CountedQty"] = *input.Qty
	}
	if input.Notes != nil {
		updates["Notes"] = *input.Notes
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(line).Updates(updates).Error; err != nil {
		return nil, err
	}
	return line, nil
}

func DeleteCountLine(ctx context.Context, lineId int) (*CountLine, error) {

	line, err := fetchLine(ctx, lineId)
	if err != nil {
		return nil, err
	}

	if _, err := openPassForLine(ctx, line.CountPassId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

func ListCountLines(ctx context.Context, passId string) ([]*CountLine, error) {

	if _, err := GetCountPass(ctx, passId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*CountLine
	err := db.WithContext(ctx).
		Where("count_pass_id = ?", passId).
		Order("captured_at desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
