// Package httpstatus exposes a small chi-routed admin surface per
// replica: a health check plus read-only introspection into pending acks
// (primary) or sequence progress (secondary). It is never on the client
// data path — Insert/Remove/Get stay on net/rpc per spec.md §1 — so it
// does not violate the "client transport is out of scope" Non-goal; it
// follows phanvanhau-simple-key-value-store's internal/api/server.go use
// of chi for exactly this kind of sidecar HTTP surface.
package httpstatus

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PrimaryStats is what a Primary reports about itself.
type PrimaryStats struct {
	Identity      string   `json:"identity"`
	KeyCount      int      `json:"key_count"`
	PendingKeys   []string `json:"pending_keys"`
	ReplicatorIds []string `json:"replicator_ids"`
}

// SecondaryStats is what a Secondary reports about itself.
type SecondaryStats struct {
	Identity    string `json:"identity"`
	KeyCount    int    `json:"key_count"`
	ExpectedSeq int64  `json:"expected_seq"`
	Waiting     bool   `json:"persistence_wait"`
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// NewPrimaryRouter builds the admin router for a primary process.
func NewPrimaryRouter(stats func() PrimaryStats) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/pending", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stats())
	})
	return r
}

// NewSecondaryRouter builds the admin router for a secondary process.
func NewSecondaryRouter(stats func() SecondaryStats) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/seq", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stats())
	})
	return r
}
