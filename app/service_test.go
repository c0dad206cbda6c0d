package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/config"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/factory"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Logging.Path = filepath.Join(t.TempDir(), "audit.jsonl")
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "kpi"}}
	cfg.Events.Relays = []factory.ModuleConfig{{Type: "log"}}
	cfg.API.Token = "tok"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

type client struct {
	t *testing.T
	h http.Handler
}

func (c client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	return rr
}

func TestServiceEndToEnd(t *testing.T) {
	svc, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()
	c := client{t: t, h: svc.Handler()}

	rr := c.do(http.MethodPut, "/api/drivers/d1", `{"zone":"Z1","capacity":100,"available":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = c.do(http.MethodPost, "/api/inventory/SKU-1/MAIN/stock", `{"quantity":10}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = c.do(http.MethodPost, "/api/shipments",
		`{"tracking_id":"TRK-1","sku":"SKU-1","quantity":2,"direction":"OUTBOUND","priority":"EXPRESS","zone":"Z1","weight":20,"volume":1}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var sh model.Shipment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sh))

	rr = c.do(http.MethodPost, "/api/dispatch/auto-assign", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res struct {
		Assigned int `json:"assigned"`
		Eligible int `json:"eligible"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, 1, res.Eligible)

	rr = c.do(http.MethodPost, "/api/dispatch/auto-assign", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = c.do(http.MethodGet, "/api/dispatch/drivers/d1/manifest", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var manifest []model.DispatchRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &manifest))
	require.Len(t, manifest, 1)
	assert.Equal(t, "TRK-1", manifest[0].TrackingID)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/shipments/"+sh.ID+"/transit", "").Code)
	rr = c.do(http.MethodPost, "/api/shipments/"+sh.ID+"/deliver", `{"actor":"d1"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rec, err := svc.Store.GetInventory(context.Background(), "SKU-1", "MAIN")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.OnHand)
	assert.Equal(t, 0, rec.Reserved)
	d, err := svc.Store.GetDriver(context.Background(), "d1")
	require.NoError(t, err)
	assert.Zero(t, d.CurrentLoad)

	rr = c.do(http.MethodGet, "/api/drivers/d1/kpis", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var kpis []struct {
		Delivered int `json:"delivered"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &kpis))
	require.Len(t, kpis, 1)
	assert.Equal(t, 1, kpis[0].Delivered)

	rr = c.do(http.MethodGet, "/api/dispatch/logs?driver_id=d1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var logs []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &logs))
	assert.Len(t, logs, 1)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	unauth := httptest.NewRecorder()
	svc.Handler().ServeHTTP(unauth, req)
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)

	rr = c.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var health struct {
		Status  string `json:"status"`
		Dropped uint64 `json:"events_dropped"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Zero(t, health.Dropped)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Events.Relays = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.SLA.Schedule = "every now and then"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.LogLevel = "chatty"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, config.StoreConfig{Backend: config.BackendSQLite, DSN: filepath.Join(t.TempDir(), "wh.db")})
	require.NoError(t, err)
	require.NoError(t, st.SaveDriver(ctx, model.Driver{ID: "d1", Zone: "Z1", Capacity: 10}))
	require.NoError(t, st.Close())

	st, err = OpenStore(ctx, config.StoreConfig{})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = OpenStore(ctx, config.StoreConfig{Backend: "redis"})
	assert.Error(t, err)
}
