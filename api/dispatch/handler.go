// Package dispatch exposes the allocation engine over HTTP.
package dispatch

import (
	"context"
	"net/http"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	coredispatch "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

// Allocator is the subset of the dispatch manager served over HTTP.
type Allocator interface {
	RunAutoAssignment(ctx context.Context) (coredispatch.OptimizationResult, error)
	AssignBatch(ctx context.Context, batchID, driverID string) error
	Manifest(ctx context.Context, driverID string) ([]model.DispatchRecord, error)
}

// Register mounts the dispatch routes on mux. logs may be nil when no audit
// store is configured.
func Register(mux *http.ServeMux, a Allocator, logs logging.LogStore) {
	mux.HandleFunc("POST /api/dispatch/auto-assign", func(w http.ResponseWriter, r *http.Request) {
		res, err := a.RunAutoAssignment(r.Context())
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, res)
	})
	mux.HandleFunc("POST /api/dispatch/batches/{batch}/assign", func(w http.ResponseWriter, r *http.Request) {
		batch := r.PathValue("batch")
		driver := r.URL.Query().Get("driver_id")
		if err := a.AssignBatch(r.Context(), batch, driver); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"batch_id": batch, "driver_id": driver})
	})
	mux.HandleFunc("GET /api/dispatch/drivers/{driver}/manifest", func(w http.ResponseWriter, r *http.Request) {
		recs, err := a.Manifest(r.Context(), r.PathValue("driver"))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if recs == nil {
			recs = []model.DispatchRecord{}
		}
		httpx.WriteJSON(w, http.StatusOK, recs)
	})
	if logs != nil {
		mux.Handle("GET /api/dispatch/logs", NewLogHandler(logs))
	}
}
