package covasync

import (
	"testing"
	"time"
)

func TestStoreIdMap_BidirectionalLookup(t *testing.T) {
	m := NewStoreIdMap(map[int][]string{
		1: {"cova-a", "cova-a-legacy"},
		2: {"cova-b"},
	})

	ids := m.CovaIdsFor(1)
	if len(ids) != 2 {
		t.Fatalf("expected 2 cova ids for store 1, got %d", len(ids))
	}

	storeId, ok := m.StoreFor("cova-a-legacy")
	if !ok || storeId != 1 {
		t.Fatalf("reverse lookup cova-a-legacy = (%d, %v), want (1, true)", storeId, ok)
	}

	if _, ok := m.StoreFor("unknown"); ok {
		t.Fatal("unknown cova id should not resolve")
	}
	if ids := m.CovaIdsFor(99); ids != nil {
		t.Fatalf("unmapped store should return nil, got %v", ids)
	}
}

func TestLoadStoreIdMap_FromEnv(t *testing.T) {
	t.Setenv("COVA_STORE_MAP", `{"1": ["cova-x"], "2": ["cova-y", "cova-z"]}`)

	m, err := LoadStoreIdMap()
	if err != nil {
		t.Fatalf("LoadStoreIdMap: %v", err)
	}
	if storeId, ok := m.StoreFor("cova-z"); !ok || storeId != 2 {
		t.Fatalf("cova-z = (%d, %v), want (2, true)", storeId, ok)
	}

	t.Setenv("COVA_STORE_MAP", "not-json")
	if _, err := LoadStoreIdMap(); err == nil {
		t.Fatal("expected error for malformed COVA_STORE_MAP")
	}

	t.Setenv("COVA_STORE_MAP", "")
	m, err = LoadStoreIdMap()
	if err != nil {
		t.Fatalf("empty map should be fine: %v", err)
	}
	if ids := m.CovaIdsFor(1); ids != nil {
		t.Fatalf("empty map should have no entries, got %v", ids)
	}
}

func TestNormalizeQtyDelta_SalesAlwaysDecrease(t *testing.T) {
	cases := []struct{ in, want int }{
		{3, -3},
		{-3, -3},
		{0, 0},
		{1, -1},
	}
	for _, c := range cases {
		if got := NormalizeQtyDelta(c.in); got != c.want {
			t.Errorf("NormalizeQtyDelta(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSaleRecord_SourceRef(t *testing.T) {
	r := SaleRecord{TransactionId: "TXN-100", LineNumber: 3}
	if got := r.SourceRef(); got != "TXN-100:3" {
		t.Errorf("SourceRef = %q, want %q", got, "TXN-100:3")
	}
}

func TestDefaultWindow(t *testing.T) {
	from := time.Date(2026, 8, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2026, 8, 3, 4, 0, 0, 0, time.UTC)

	start, end := defaultWindow(&from, &to)
	if start.Day() != 1 || start.Hour() != 0 {
		t.Errorf("start should be midnight of from-date, got %v", start)
	}
	if end.Day() != 3 || end.Hour() != 23 {
		t.Errorf("end should be end of to-date, got %v", end)
	}

	// no explicit range spans yesterday through today
	start, end = defaultWindow(nil, nil)
	if !start.Before(end) {
		t.Errorf("default window is inverted: [%v, %v]", start, end)
	}
	if end.Sub(start) < 24*time.Hour {
		t.Errorf("default window should cover at least a full day, got %v", end.Sub(start))
	}
}
