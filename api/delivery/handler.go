// Package delivery exposes the driver-side shipment lifecycle over HTTP.
package delivery

import (
	"context"
	"net/http"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	coredelivery "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/delivery"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

// Lifecycle moves dispatched shipments to a terminal state.
type Lifecycle interface {
	StartTransit(ctx context.Context, id, actor string) (*model.Shipment, error)
	OutForDelivery(ctx context.Context, id, actor string) (*model.Shipment, error)
	Complete(ctx context.Context, id, actor string) (*model.Shipment, error)
	ReportException(ctx context.Context, id, reason, actor string) (*model.Shipment, error)
	RecordLocation(ctx context.Context, id string, in coredelivery.LocationInput) error
}

type stepRequest struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Register mounts the routes on mux.
func Register(mux *http.ServeMux, l Lifecycle) {
	step := func(fn func(ctx context.Context, id string, req stepRequest) (*model.Shipment, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var req stepRequest
			if r.ContentLength != 0 {
				if err := httpx.DecodeJSON(r, &req); err != nil {
					httpx.WriteError(w, r, err)
					return
				}
			}
			sh, err := fn(r.Context(), r.PathValue("id"), req)
			if err != nil {
				httpx.WriteError(w, r, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, sh)
		}
	}
	mux.HandleFunc("POST /api/shipments/{id}/transit", step(func(ctx context.Context, id string, req stepRequest) (*model.Shipment, error) {
		return l.StartTransit(ctx, id, req.Actor)
	}))
	mux.HandleFunc("POST /api/shipments/{id}/out-for-delivery", step(func(ctx context.Context, id string, req stepRequest) (*model.Shipment, error) {
		return l.OutForDelivery(ctx, id, req.Actor)
	}))
	mux.HandleFunc("POST /api/shipments/{id}/deliver", step(func(ctx context.Context, id string, req stepRequest) (*model.Shipment, error) {
		return l.Complete(ctx, id, req.Actor)
	}))
	mux.HandleFunc("POST /api/shipments/{id}/exception", step(func(ctx context.Context, id string, req stepRequest) (*model.Shipment, error) {
		return l.ReportException(ctx, id, req.Reason, req.Actor)
	}))
	mux.HandleFunc("POST /api/shipments/{id}/locations", func(w http.ResponseWriter, r *http.Request) {
		var in coredelivery.LocationInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		if err := l.RecordLocation(r.Context(), r.PathValue("id"), in); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
