package covasync

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// StoreIdMap maps internal store ids to the external Cova location ids that
// report sales for them. One store can have several Cova ids (a register
// migration leaves the old id producing historical rows). The map is built
// once at startup and injected into the service, never read from globals.
type StoreIdMap struct {
	byStore map[int][]string
	byCova  map[string]int
}

func NewStoreIdMap(entries map[int][]string) StoreIdMap {
	m := StoreIdMap{
		byStore: make(map[int][]string, len(entries)),
		byCova:  make(map[string]int),
	}
	for storeId, covaIds := range entries {
		ids := make([]string, len(covaIds))
		copy(ids, covaIds)
		m.byStore[storeId] = ids
		for _, covaId := range covaIds {
			m.byCova[covaId] = storeId
		}
	}
	return m
}

// LoadStoreIdMap reads the mapping from the COVA_STORE_MAP env var, a JSON
// object of {"storeId": ["covaId", ...]}.
func LoadStoreIdMap() (StoreIdMap, error) {
	raw := os.Getenv("COVA_STORE_MAP")
	if raw == "" {
		return NewStoreIdMap(nil), nil
	}
	var entries map[int][]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return StoreIdMap{}, err
	}
	return NewStoreIdMap(entries), nil
}

// CovaIdsFor returns the external ids for a store, nil when unmapped.
func (m StoreIdMap) CovaIdsFor(storeId int) []string {
	return m.byStore[storeId]
}

// StoreFor resolves an external Cova id back to the internal store.
func (m StoreIdMap) StoreFor(covaId string) (int, bool) {
	storeId, ok := m.byCova[covaId]
	return storeId, ok
}

// SaleRecord is one sold line in the external sales feed.
type SaleRecord struct {
	TransactionId string
	LineNumber    int
	CovaStoreId   string
	SoldAt        time.Time
	Sku           string
	Quantity      int
}

// SourceRef is the idempotency key a sale line gets as a movement:
// "{transactionId}:{lineNumber}".
func (r SaleRecord) SourceRef() string {
	return r.TransactionId + ":" + strconv.Itoa(r.LineNumber)
}

// SyncStats is what one sync run reports back.
type SyncStats struct {
	Found         int       `json:"found"`
	Created       int       `json:"created"`
	Skipped       int       `json:"skipped"`
	NotFound      int       `json:"not_found"`
	Deleted       int64     `json:"deleted"`
	UnmatchedSkus []string  `json:"unmatched_skus"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	SyncedAt      time.Time `json:"synced_at"`
}

// SyncStatus is the liveness signal for monitoring, not used by variance.
type SyncStatus struct {
	StoreId        int        `json:"store_id"`
	LastMovementAt *time.Time `json:"last_movement_at"`
	TodayCount     int64      `json:"today_count"`
}

type TriggerSyncRequest struct {
	StoreId     int    `json:"store_id" binding:"required"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	ForceResync bool   `json:"force_resync"`
}
