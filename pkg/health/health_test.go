package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{
			"model": FuncCheck(func(context.Context) error { return nil }, StatusDown),
		}, StatusUp},
		{"degraded", map[string]Check{
			"model": FuncCheck(func(context.Context) error { return nil }, StatusDown),
			"redis": FuncCheck(func(context.Context) error { return errors.New("refused") }, StatusDegraded),
		}, StatusDegraded},
		{"down", map[string]Check{
			"model": FuncCheck(func(context.Context) error { return errors.New("no model") }, StatusDown),
			"redis": FuncCheck(func(context.Context) error { return errors.New("refused") }, StatusDegraded),
		}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Fatalf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.checks) {
				t.Fatalf("components = %d", len(report.Components))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("model", FuncCheck(func(context.Context) error { return errors.New("no model") }, StatusDown))
	mux := http.NewServeMux()
	c.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Components["model"].Message != "no model" {
		t.Fatalf("report = %+v", report)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live status = %d", rec.Code)
	}
}
