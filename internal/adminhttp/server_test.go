package adminhttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asciichat/fanout/internal/fanout"
	"github.com/asciichat/fanout/internal/ledger"
)

type fakeRegistry struct {
	count int
	snap  []fanout.ClientSnapshot
}

func (f *fakeRegistry) Count() int                        { return f.count }
func (f *fakeRegistry) Snapshot() []fanout.ClientSnapshot { return f.snap }

func TestHandleHealthzReportsClientCount(t *testing.T) {
	reg := &fakeRegistry{count: 3}
	s := New(reg, nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Clients != 3 || resp.Status != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandleStatsReflectsSnapshot(t *testing.T) {
	reg := &fakeRegistry{snap: []fanout.ClientSnapshot{
		{ID: 1, Active: true, IsSendingVideo: true, Width: 80, Height: 24},
	}}
	s := New(reg, nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Clients) != 1 || resp.Clients[0].ID != 1 || !resp.Clients[0].IsSendingVideo {
		t.Fatalf("unexpected stats: %+v", resp)
	}
}

func TestHandleMetricsExposesPrometheusFormat(t *testing.T) {
	led, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	defer led.Close()
	led.RecordEvent(1, ledger.ClientConnected, "")

	reg := &fakeRegistry{count: 1}
	s := New(reg, led, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "asciichatd_clients_connected") {
		t.Fatalf("expected clients_connected metric in output, got: %s", body)
	}
}
