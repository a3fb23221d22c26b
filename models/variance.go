package models

import (
	"context"
	"sort"
	"time"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/utils"
)

// VarianceOptions controls the session variance computation. The default is
// the blanket window: one [min(started_at), max(submitted_at)] interval over
// all submitted passes. PerPassWindows attributes movements to each pass's
// own interval instead, merging overlaps so nothing is double counted.
type VarianceOptions struct {
	NonZeroOnly    bool
	PerPassWindows bool
}

type VarianceItem struct {
	Sku           string `json:"sku"`
	ProductName   string `json:"productName"`
	Brand         string `json:"brand"`
	Category      string `json:"category"`
	Subcategory   string `json:"subcategory"`
	CountedQty    int    `json:"countedQty"`
	BaselineQty   int    `json:"baselineQty"`
	MovementDelta int    `json:"movementDelta"`
	ExpectedQty   int    `json:"expectedQty"`
	Variance      int    `json:"variance"`
}

type VarianceReport struct {
	SessionId     string         `json:"sessionId"`
	StoreId       int            `json:"storeId"`
	Status        SessionStatus  `json:"status"`
	TotalSkus     int            `json:"totalSkus"`
	TotalVariance int            `json:"totalVariance"`
	Items         []VarianceItem `json:"items"`
}

type countWindow struct {
	from time.Time
	to   time.Time
}

// mergeWindows collapses pass intervals into a disjoint set so that summing
// movements over the result counts each movement at most once, whether the
// passes overlap or not.
func mergeWindows(windows []countWindow) []countWindow {
	if len(windows) <= 1 {
		return windows
	}
	sorted := make([]countWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].from.Before(sorted[j].from)
	})

	merged := []countWindow{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !w.from.After(last.to) {
			if w.to.After(last.to) {
				last.to = w.to
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

type varianceProduct struct {
	Name        string
	Brand       string
	Category    string
	Subcategory string
}

// buildVarianceItems is the pure core of the variance engine: counted and
// baseline quantities plus net movement per SKU in, sorted report items out.
// The union of counted and baseline SKUs defines the report; movement-only
// SKUs never enter it. Sorted by absolute variance descending, SKU ascending
// on ties.
func buildVarianceItems(counted map[string]int, baseline map[string]int,
	movements map[string]int, products map[string]varianceProduct,
	nonZeroOnly bool) ([]VarianceItem, int) {

	skus := make(map[string]bool, len(counted)+len(baseline))
	for sku := range counted {
		skus[sku] = true
	}
	for sku := range baseline {
		skus[sku] = true
	}

	items := make([]VarianceItem, 0, len(skus))
	totalVariance := 0
	for sku := range skus {
		expected := baseline[sku] + movements[sku]
		variance := counted[sku] - expected
		if nonZeroOnly && variance == 0 {
			continue
		}
		item := VarianceItem{
			Sku:           sku,
			CountedQty:    counted[sku],
			BaselineQty:   baseline[sku],
			MovementDelta: movements[sku],
			ExpectedQty:   expected,
			Variance:      variance,
		}
		if p, ok := products[sku]; ok {
			item.ProductName = p.Name
			item.Brand = p.Brand
			item.Category = p.Category
			item.Subcategory = p.Subcategory
		}
		if variance < 0 {
			totalVariance -= variance
		} else {
			totalVariance += variance
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Variance, items[j].Variance
		if a < 0 {
			a = -a
		}
		if b < 0 {
			b = -b
		}
		if a != b {
			return a > b
		}
		return items[i].Sku < items[j].Sku
	})

	return items, totalVariance
}

// GetSessionVariance computes counted vs expected quantity per SKU across
// all submitted passes of a session. Non-submitted and voided passes are
// excluded entirely. If no pass has submitted, movement lookup is skipped
// and the movement delta is zero for every SKU.
func GetSessionVariance(ctx context.Context, sessionId string, opts VarianceOptions) (*VarianceReport, error) {

	session, err := GetCountSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var passes []*CountPass
	err = db.WithContext(ctx).
		Where("count_session_id = ? AND status = ?", sessionId, PassStatusSubmitted).
		Find(&passes).Error
	if err != nil {
		return nil, err
	}

	// counted quantities, summed across all submitted passes
	counted := map[string]int{}
	if len(passes) > 0 {
		passIds := make([]string, 0, len(passes))
		for _, p := range passes {
			passIds = append(passIds, p.ID)
		}

		type countedRow struct {
			Sku      string
			TotalQty int
		}
		var rows []countedRow
		err = db.WithContext(ctx).Model(&CountLine{}).
			Select("sku, COALESCE(SUM(counted_qty), 0) as total_qty").
			Where("count_pass_id IN ?", passIds).
			Group("sku").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			counted[r.Sku] = r.TotalQty
		}
	}

	// baseline snapshot and product display fields for the store
	type baselineRow struct {
		Sku             string
		CurrentQuantity int
		Name            string
		Brand           string
		Category        string
		Subcategory     string
	}
	var baselineRows []baselineRow
	err = db.WithContext(ctx).Model(&InventoryItem{}).
		Select("products.sku, inventory_items.current_quantity, products.name, products.brand, products.category, products.subcategory").
		Joins("JOIN products ON products.id = inventory_items.product_id").
		Where("inventory_items.store_id = ?", session.StoreId).
		Scan(&baselineRows).Error
	if err != nil {
		return nil, err
	}

	baseline := make(map[string]int, len(baselineRows))
	products := make(map[string]varianceProduct, len(baselineRows))
	for _, r := range baselineRows {
		baseline[r.Sku] = r.CurrentQuantity
		products[r.Sku] = varianceProduct{
			Name:        r.Name,
			Brand:       r.Brand,
			Category:    r.Category,
			Subcategory: r.Subcategory,
		}
	}

	// counted SKUs missing from the baseline still need display fields
	for sku := range counted {
		if _, ok := products[sku]; ok {
			continue
		}
		var p Product
		if err := db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error; err == nil {
			products[sku] = varianceProduct{
				Name:        p.Name,
				Brand:       p.Brand,
				Category:    p.Category,
				Subcategory: p.Subcategory,
			}
		}
	}

	movements, err := sessionMovementDeltas(ctx, session.StoreId, passes, opts.PerPassWindows)
	if err != nil {
		return nil, err
	}

	items, totalVariance := buildVarianceItems(counted, baseline, movements, products, opts.NonZeroOnly)

	return &VarianceReport{
		SessionId:     session.ID,
		StoreId:       session.StoreId,
		Status:        session.Status,
		TotalSkus:     len(items),
		TotalVariance: totalVariance,
		Items:         items,
	}, nil
}

// sessionMovementDeltas sums movements over the session's counting windows.
// Blanket mode uses one [earliest start, latest submit] interval; per-pass
// mode sums each pass's own interval after merging overlaps.
func sessionMovementDeltas(ctx context.Context, storeId int,
	passes []*CountPass, perPass bool) (map[string]int, error) {

	windows := make([]countWindow, 0, len(passes))
	for _, p := range passes {
		if p.SubmittedAt == nil {
			continue
		}
		windows = append(windows, countWindow{from: p.StartedAt, to: *p.SubmittedAt})
	}
	if len(windows) == 0 {
		return map[string]int{}, nil
	}

	if !perPass {
		blanket := windows[0]
		for _, w := range windows[1:] {
			if w.from.Before(blanket.from) {
				blanket.from = w.from
			}
			if w.to.After(blanket.to) {
				blanket.to = w.to
			}
		}
		windows = []countWindow{blanket}
	} else {
		windows = mergeWindows(windows)
	}

	totals := map[string]int{}
	for _, w := range windows {
		deltas, err := MovementWindowDeltas(ctx, storeId, w.from, w.to)
		if err != nil {
			return nil, err
		}
		for sku, delta := range deltas {
			totals[sku] += delta
		}
	}
	return totals, nil
}

// GetSessionVarianceChecked is the HTTP-facing wrapper: variance is only
// meaningful once counting has finished.
func GetSessionVarianceChecked(ctx context.Context, sessionId string, opts VarianceOptions) (*VarianceReport, error) {
	report, err := GetSessionVariance(ctx, sessionId, opts)
	if err != nil {
		return nil, err
	}
	if report.Status == SessionStatusDraft {
		return nil, utils.InvalidStateError("count session", sessionId,
			"variance is not available for a draft session")
	}
	return report, nil
}
