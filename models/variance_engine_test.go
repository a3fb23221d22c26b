package models

import (
	"testing"
	"time"
)

func window(from, to string) countWindow {
	parse := func(v string) time.Time {
		t, err := time.Parse("2006-01-02 15:04", v)
		if err != nil {
			panic(err)
		}
		return t
	}
	return countWindow{from: parse(from), to: parse(to)}
}

func TestMergeWindows_DisjointStayDisjoint(t *testing.T) {
	merged := mergeWindows([]countWindow{
		window("2026-08-01 10:00", "2026-08-01 11:00"),
		window("2026-08-01 14:00", "2026-08-01 15:00"),
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(merged))
	}
	if !merged[0].to.Before(merged[1].from) {
		t.Fatalf("windows should stay disjoint: %+v", merged)
	}
}

func TestMergeWindows_OverlappingCollapse(t *testing.T) {
	merged := mergeWindows([]countWindow{
		window("2026-08-01 14:00", "2026-08-01 16:00"),
		window("2026-08-01 10:00", "2026-08-01 15:00"),
		window("2026-08-01 15:30", "2026-08-01 17:00"),
	})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged window, got %d", len(merged))
	}
	want := window("2026-08-01 10:00", "2026-08-01 17:00")
	if !merged[0].from.Equal(want.from) || !merged[0].to.Equal(want.to) {
		t.Fatalf("merged = [%v, %v], want [%v, %v]",
			merged[0].from, merged[0].to, want.from, want.to)
	}
}

func TestMergeWindows_TouchingEdgesMerge(t *testing.T) {
	merged := mergeWindows([]countWindow{
		window("2026-08-01 10:00", "2026-08-01 12:00"),
		window("2026-08-01 12:00", "2026-08-01 13:00"),
	})
	if len(merged) != 1 {
		t.Fatalf("expected windows sharing an edge to merge, got %d", len(merged))
	}
}

func TestBuildVarianceItems_Example(t *testing.T) {
	counted := map[string]int{"FL-001": 8}
	baseline := map[string]int{"FL-001": 10}
	movements := map[string]int{"FL-001": -3}

	items, total := buildVarianceItems(counted, baseline, movements, nil, false)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.ExpectedQty != 7 {
		t.Errorf("expected qty = %d, want 7", item.ExpectedQty)
	}
	if item.Variance != 1 {
		t.Errorf("variance = %d, want +1", item.Variance)
	}
	if total != 1 {
		t.Errorf("total variance = %d, want 1", total)
	}

	// flipping the count flips the sign
	counted["FL-001"] = 5
	items, total = buildVarianceItems(counted, baseline, movements, nil, false)
	if items[0].Variance != -2 {
		t.Errorf("variance = %d, want -2", items[0].Variance)
	}
	if total != 2 {
		t.Errorf("total variance = %d, want 2 (absolute)", total)
	}
}

func TestBuildVarianceItems_UnionExcludesMovementOnlySkus(t *testing.T) {
	counted := map[string]int{"A": 3}
	baseline := map[string]int{"B": 5}
	movements := map[string]int{"C": -4}

	items, _ := buildVarianceItems(counted, baseline, movements, nil, false)
	for _, item := range items {
		if item.Sku == "C" {
			t.Fatalf("movement-only sku C should not appear in the report")
		}
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (A counted, B baseline), got %d", len(items))
	}
}

func TestBuildVarianceItems_NonZeroFilter(t *testing.T) {
	counted := map[string]int{"A": 5, "B": 4}
	baseline := map[string]int{"A": 5, "B": 5}

	items, _ := buildVarianceItems(counted, baseline, map[string]int{}, nil, true)
	if len(items) != 1 {
		t.Fatalf("expected only the non-zero sku, got %d items", len(items))
	}
	if items[0].Sku != "B" {
		t.Fatalf("expected B, got %s", items[0].Sku)
	}
	for _, item := range items {
		if item.CountedQty == item.BaselineQty+item.MovementDelta {
			t.Fatalf("non_zero_only returned a zero-variance sku %s", item.Sku)
		}
	}
}

func TestBuildVarianceItems_SortLargestAbsoluteFirst(t *testing.T) {
	counted := map[string]int{"A": 1, "B": 10, "C": 4}
	baseline := map[string]int{"A": 5, "B": 5, "C": 9}

	items, total := buildVarianceItems(counted, baseline, map[string]int{}, nil, false)

	// A: -4, B: +5, C: -5 -> C (tie |5| with B but C... ) B and C tie at 5, B < C
	if items[0].Sku != "B" || items[1].Sku != "C" || items[2].Sku != "A" {
		order := []string{items[0].Sku, items[1].Sku, items[2].Sku}
		t.Fatalf("order = %v, want [B C A]", order)
	}
	if total != 14 {
		t.Errorf("total = %d, want 14", total)
	}
}

func TestBuildVarianceItems_MissingBaselineDefaultsZero(t *testing.T) {
	counted := map[string]int{"NEW-SKU": 2}

	items, _ := buildVarianceItems(counted, map[string]int{}, map[string]int{}, nil, false)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].BaselineQty != 0 || items[0].Variance != 2 {
		t.Fatalf("baseline = %d variance = %d, want 0 and 2",
			items[0].BaselineQty, items[0].Variance)
	}
}

func TestBuildVarianceItems_ProductFieldsAttached(t *testing.T) {
	counted := map[string]int{"FL-001": 3}
	products := map[string]varianceProduct{
		"FL-001": {Name: "Blue Dream 3.5g", Brand: "House", Category: "Flower"},
	}

	items, _ := buildVarianceItems(counted, map[string]int{}, map[string]int{}, products, false)
	if items[0].ProductName != "Blue Dream 3.5g" || items[0].Category != "Flower" {
		t.Fatalf("product fields missing: %+v", items[0])
	}
}
