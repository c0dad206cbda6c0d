package drivers

import (
	"net/http"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
)

type kpiOut struct {
	Date        string  `json:"date"`
	Delivered   int     `json:"delivered"`
	Returned    int     `json:"returned"`
	Escalated   int     `json:"escalated"`
	SuccessRate float64 `json:"success_rate"`
	AverageLoad float64 `json:"average_load_kg"`
}

// NewKPIHandler exposes daily delivery KPIs via GET /api/drivers/{id}/kpis.
// start and end are RFC3339; end defaults to now. summary=true folds the
// range into a single object.
func NewKPIHandler(store kpi.Store) http.Handler {
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
		if end.IsZero() {
			end = time.Now()
		}
		recs, err := store.Query(r.PathValue("id"), start, end)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if r.URL.Query().Get("summary") == "true" {
			httpx.WriteJSON(w, http.StatusOK, toKPIOut(kpi.Total(recs)))
			return
		}
		out := make([]kpiOut, len(recs))
		for i, rec := range recs {
			out[i] = toKPIOut(rec)
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	})
}

func toKPIOut(rec kpi.Record) kpiOut {
	out := kpiOut{
		Delivered:   rec.Delivered,
		Returned:    rec.Returned,
		Escalated:   rec.EscalatedCount,
		SuccessRate: rec.SuccessRate(),
		AverageLoad: rec.AverageLoad(),
	}
	if !rec.Date.IsZero() {
		out.Date = rec.Date.Format(time.DateOnly)
	}
	return out
}
