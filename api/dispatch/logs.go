package dispatch

import (
	"net/http"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
)

// NewLogHandler returns an HTTP handler exposing the allocation audit trail
// via GET /api/dispatch/logs. Supported filters: start, end (RFC3339),
// driver_id, tracking_id, method and limit.
func NewLogHandler(store logging.LogStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, err := httpx.QueryTime(r, "start")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		end, err := httpx.QueryTime(r, "end")
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		limit, err := httpx.QueryInt(r, "limit", 0)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		q := logging.LogQuery{
			Start:      start,
			End:        end,
			DriverID:   r.URL.Query().Get("driver_id"),
			TrackingID: r.URL.Query().Get("tracking_id"),
			Method:     r.URL.Query().Get("method"),
			Limit:      limit,
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		httpx.WriteJSON(w, http.StatusOK, records)
	})
}
