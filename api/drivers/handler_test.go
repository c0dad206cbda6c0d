package drivers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/metrics/kpi"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/store"
)

func TestSaveAndList(t *testing.T) {
	st := store.NewMemoryStore()
	mux := http.NewServeMux()
	Register(mux, st, nil)

	put := func(id, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/drivers/"+id, strings.NewReader(body)))
		return rr
	}
	if rr := put("d1", `{"zone":"Z1","capacity":100,"available":true,"current_load":99}`); rr.Code != http.StatusOK {
		t.Fatalf("save d1: %d %s", rr.Code, rr.Body.String())
	}
	d, err := st.GetDriver(context.Background(), "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.CurrentLoad != 0 {
		t.Fatalf("a new driver must start empty, got %f", d.CurrentLoad)
	}
	if err := st.AdjustDriverLoad(context.Background(), "d1", 30, 1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if rr := put("d1", `{"zone":"Z1","capacity":120,"available":true}`); rr.Code != http.StatusOK {
		t.Fatalf("update d1: %d", rr.Code)
	}
	d, _ = st.GetDriver(context.Background(), "d1")
	if d.Capacity != 120 || d.CurrentLoad != 30 {
		t.Fatalf("load must survive roster updates: %+v", d)
	}
	if rr := put("d2", `{"zone":"Z2","capacity":50}`); rr.Code != http.StatusOK {
		t.Fatalf("save d2: %d", rr.Code)
	}
	if rr := put("d3", `{"capacity":50}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing zone must be rejected, got %d", rr.Code)
	}
	if rr := put("d3", `{"zone":"Z1","capacity":-1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("negative capacity must be rejected, got %d", rr.Code)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/drivers?available=true", nil))
	var out []model.Driver
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ID != "d1" {
		t.Fatalf("unexpected drivers %+v", out)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/drivers/d1/kpis", nil))
	if rr.Code == http.StatusOK {
		t.Fatal("kpi route must not be mounted without a store")
	}
}

func TestKPIHandler(t *testing.T) {
	ks := kpi.NewMemoryStore()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_ = ks.Add(kpi.Record{DriverID: "d1", Date: day.Add(9 * time.Hour), Delivered: 3, DeliveredKg: 30})
	_ = ks.Add(kpi.Record{DriverID: "d1", Date: day.Add(15 * time.Hour), Returned: 1})
	_ = ks.Add(kpi.Record{DriverID: "d1", Date: day.AddDate(0, 0, 1), EscalatedCount: 1})

	mux := http.NewServeMux()
	Register(mux, store.NewMemoryStore(), ks)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/drivers/d1/kpis?start=2025-03-01T00:00:00Z&end=2025-03-01T23:00:00Z", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []kpiOut
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one day, got %+v", out)
	}
	if out[0].Date != "2025-03-01" || out[0].Delivered != 3 || out[0].SuccessRate != 0.75 || out[0].AverageLoad != 10 {
		t.Fatalf("unexpected kpis %+v", out[0])
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/drivers/d1/kpis?start=2025-03-01T00:00:00Z&end=2025-03-03T00:00:00Z&summary=true", nil))
	var total kpiOut
	if err := json.Unmarshal(rr.Body.Bytes(), &total); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if total.Date != "2025-03-01" || total.Delivered != 3 || total.Returned != 1 || total.Escalated != 1 {
		t.Fatalf("unexpected summary %+v", total)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/drivers/d1/kpis?start=yesterday", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}
