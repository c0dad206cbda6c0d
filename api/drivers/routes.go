package drivers

import (
	"net/http"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// Register mounts the driver routes. The KPI route is skipped when kpis is nil.
func Register(mux *http.ServeMux, st store.DriverStore, kpis kpi.Store) {
	mux.Handle("GET /api/drivers", NewListHandler(st))
	mux.Handle("PUT /api/drivers/{id}", NewSaveHandler(st))
	if kpis != nil {
		mux.Handle("GET /api/drivers/{id}/kpis", NewKPIHandler(kpis))
	}
}
