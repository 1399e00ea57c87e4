package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/database"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []ReadinessCheck
		wantStatus int
		wantChecks map[string]string
	}{
		{"database only", nil, http.StatusOK, map[string]string{"database": "ok"}},
		{
			"all healthy",
			[]ReadinessCheck{{Name: "ocr", Check: ok}, {Name: "inference", Check: ok}},
			http.StatusOK,
			map[string]string{"database": "ok", "ocr": "ok", "inference": "ok"},
		},
		{
			"ocr down",
			[]ReadinessCheck{{Name: "ocr", Check: down}, {Name: "inference", Check: ok}},
			http.StatusServiceUnavailable,
			map[string]string{"database": "ok", "ocr": "connection refused", "inference": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := database.NewGORMStore(database.OpenTestDB(t), logger.NewNop())
			app := fiber.New()
			h := NewHealthHandler(store, tt.checks...)
			app.Get("/ping", h.Ping)
			app.Get("/ping/ready", h.Ready)

			// Liveness ignores optional dependencies
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("ping = %d", resp.StatusCode)
			}

			resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ping/ready", nil))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("ready = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v", body.Checks)
			}
			for name, want := range tt.wantChecks {
				if body.Checks[name] != want {
					t.Errorf("check %s = %q, want %q", name, body.Checks[name], want)
				}
			}
		})
	}
}
