package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spiralshops/spiral-loyalty/pkg/config"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func healthConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLiveReportsEnv(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(healthConfig())(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Spiral-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestHealthReadyPassesWhenDependenciesRespond(t *testing.T) {
	resp := httptest.NewRecorder()
	handler := HealthReady(healthConfig(), testLogger(), stubPinger{}, stubPinger{})
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyFailsOnDeadDependency(t *testing.T) {
	resp := httptest.NewRecorder()
	handler := HealthReady(healthConfig(), testLogger(), stubPinger{err: errors.New("connection refused")}, nil)
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestHealthReadySkipsMissingDependencies(t *testing.T) {
	resp := httptest.NewRecorder()
	handler := HealthReady(healthConfig(), testLogger(), nil, nil)
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
