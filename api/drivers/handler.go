// Package drivers exposes the driver roster and daily delivery KPIs.
package drivers

import (
	"net/http"
	"strings"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// NewListHandler serves GET /api/drivers with optional zone and available filters.
func NewListHandler(st store.DriverStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := store.DriverFilter{
			Zone:          r.URL.Query().Get("zone"),
			AvailableOnly: r.URL.Query().Get("available") == "true",
		}
		list, err := st.ListDrivers(r.Context(), f)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if list == nil {
			list = []model.Driver{}
		}
		httpx.WriteJSON(w, http.StatusOK, list)
	})
}

// NewSaveHandler serves PUT /api/drivers/{id}. The driver's current load is
// owned by the allocation engine and kept from the stored record.
func NewSaveHandler(st store.DriverStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var d model.Driver
		if err := httpx.DecodeJSON(r, &d); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		d.ID = strings.TrimSpace(r.PathValue("id"))
		if err := validate(d); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		cur, err := st.GetDriver(r.Context(), d.ID)
		switch {
		case err == nil:
			d.CurrentLoad, d.CurrentVolume = cur.CurrentLoad, cur.CurrentVolume
		case apperr.KindOf(err) != apperr.KindNotFound:
			httpx.WriteError(w, r, err)
			return
		default:
			d.CurrentLoad, d.CurrentVolume = 0, 0
		}
		if err := st.SaveDriver(r.Context(), d); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, d)
	})
}

func validate(d model.Driver) error {
	switch {
	case d.ID == "":
		return apperr.New(apperr.ErrValidation, "driver id is required")
	case strings.TrimSpace(d.Zone) == "":
		return apperr.New(apperr.ErrValidation, "zone is required")
	case d.Capacity < 0 || d.VolumeCapacity < 0:
		return apperr.New(apperr.ErrValidation, "capacities must not be negative")
	case d.CumulativeDrivingMinutes < 0 || d.ContinuousDrivingMinutes < 0:
		return apperr.New(apperr.ErrValidation, "driving minutes must not be negative")
	}
	return nil
}
