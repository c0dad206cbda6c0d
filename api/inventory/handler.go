// Package inventory exposes shipment intake, stock levels, split-brain
// reconciliation and the SLA sweep over HTTP.
package inventory

import (
	"context"
	"net/http"
	"strings"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/api/httpx"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/apperr"
	coreinv "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/inventory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/reconcile"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

// Shipments creates and receives shipments.
type Shipments interface {
	CreateShipment(ctx context.Context, in coreinv.NewShipment) (*model.Shipment, error)
	ReceiveInbound(ctx context.Context, shipmentID string, counted int, actor string) (*model.Shipment, error)
	ResolveDispute(ctx context.Context, shipmentID string, accept bool, actor string) (*model.Shipment, error)
	FulfillPending(ctx context.Context, sku, warehouse string) (int, error)
}

// Reconciler detects and resolves over-reserved SKUs.
type Reconciler interface {
	DetectConflicts(ctx context.Context) ([]reconcile.Conflict, error)
	Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error)
}

// Sweeper escalates overdue shipments.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Handlers groups the dependencies of the inventory routes.
type Handlers struct {
	Shipments  Shipments
	Reconciler Reconciler
	Sweeper    Sweeper
	Store      store.Store
}

type receiveRequest struct {
	Counted int    `json:"counted"`
	Actor   string `json:"actor,omitempty"`
}

type disputeRequest struct {
	Accept bool   `json:"accept"`
	Actor  string `json:"actor,omitempty"`
}

// Register mounts the routes on mux.
func (h Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/shipments", h.createShipment)
	mux.HandleFunc("GET /api/shipments/{id}", h.getShipment)
	mux.HandleFunc("POST /api/shipments/{id}/receive", h.receive)
	mux.HandleFunc("POST /api/shipments/{id}/dispute", h.resolveDispute)
	mux.HandleFunc("GET /api/inventory", h.listInventory)
	mux.HandleFunc("POST /api/inventory/{sku}/{warehouse}/stock", h.addStock)
	mux.HandleFunc("GET /api/inventory/conflicts", h.conflicts)
	mux.HandleFunc("POST /api/inventory/reconcile", h.reconcile)
	mux.HandleFunc("POST /api/sla/sweep", h.sweep)
}

func (h Handlers) createShipment(w http.ResponseWriter, r *http.Request) {
	var in coreinv.NewShipment
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sh, err := h.Shipments.CreateShipment(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sh)
}

func (h Handlers) getShipment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sh, err := h.Store.GetShipment(r.Context(), id)
	if apperr.KindOf(err) == apperr.KindNotFound {
		sh, err = h.Store.GetShipmentByTracking(r.Context(), id)
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sh)
}

func (h Handlers) receive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sh, err := h.Shipments.ReceiveInbound(r.Context(), r.PathValue("id"), req.Counted, req.Actor)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sh)
}

func (h Handlers) resolveDispute(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sh, err := h.Shipments.ResolveDispute(r.Context(), r.PathValue("id"), req.Accept, req.Actor)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sh)
}

func (h Handlers) listInventory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Store.ListInventory(r.Context(), store.InventoryFilter{
		SKU:       r.URL.Query().Get("sku"),
		Warehouse: r.URL.Query().Get("warehouse"),
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if recs == nil {
		recs = []model.InventoryRecord{}
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}

type stockRequest struct {
	Quantity int `json:"quantity"`
}

type stockResponse struct {
	Record    *model.InventoryRecord `json:"record"`
	Fulfilled int                    `json:"fulfilled"`
}

// addStock books a stock arrival outside the inbound shipment flow and then
// promotes backorders the new stock can serve.
func (h Handlers) addStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	sku := strings.TrimSpace(r.PathValue("sku"))
	wh := strings.TrimSpace(r.PathValue("warehouse"))
	if req.Quantity <= 0 {
		httpx.WriteError(w, r, apperr.New(apperr.ErrValidation, "quantity must be positive"))
		return
	}
	if err := h.Store.Receive(r.Context(), sku, wh, req.Quantity); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	n, err := h.Shipments.FulfillPending(r.Context(), sku, wh)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	rec, err := h.Store.GetInventory(r.Context(), sku, wh)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stockResponse{Record: rec, Fulfilled: n})
}

func (h Handlers) conflicts(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Reconciler.DetectConflicts(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if cs == nil {
		cs = []reconcile.Conflict{}
	}
	httpx.WriteJSON(w, http.StatusOK, cs)
}

func (h Handlers) reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcile.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.Reconciler.Reconcile(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h Handlers) sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"escalated": n})
}
