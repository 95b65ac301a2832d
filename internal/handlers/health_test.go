package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/trip-planner/internal/database"
)

type failingKV struct {
	database.KVStore
}

func (f *failingKV) HealthCheck(context.Context) error {
	return errors.New("store down")
}

func TestHealthCheck_BasicMode(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(database.NewMemoryKV(), nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Checks != nil {
		t.Error("basic mode should not run checks")
	}
}

func TestHealthCheck_ExtendedMode(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(database.NewMemoryKV(), &recordingQueue{})
	req := httptest.NewRequest("GET", "/healthz?mode=extended", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checks["store"] != "healthy" {
		t.Errorf("store check = %q", resp.Checks["store"])
	}
	if resp.Checks["queue"] != "healthy" {
		t.Errorf("queue check = %q", resp.Checks["queue"])
	}
}

func TestHealthCheck_ExtendedModeUnhealthyStore(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(&failingKV{KVStore: database.NewMemoryKV()}, nil)
	req := httptest.NewRequest("GET", "/healthz?mode=extended", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("status = %q", resp.Status)
	}
}
