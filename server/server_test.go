package server_test

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/streambot/server"
	"github.com/onnwee/streambot/testutil"
)

func TestHealthzAndStatus(t *testing.T) {
	database := testutil.SetupTestDB(t)
	mux := server.NewMux(database, "somechannel")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["channel"] != "somechannel" {
		t.Errorf("channel = %v", body["channel"])
	}
	if _, ok := body["executions_24h"]; !ok {
		t.Error("status should report executions_24h")
	}
}

func TestHealthzUnreachableDatabase(t *testing.T) {
	// nothing listens on port 1
	database, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = database.Close() }()

	mux := server.NewMux(database, "somechannel")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/healthz with unreachable db = %d, want 503", rec.Code)
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	database, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = database.Close() }()
	mux := server.NewMux(database, "somechannel")

	// a supplied id is echoed back
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-Id", "corr-123")
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-Id"); got != "corr-123" {
		t.Errorf("correlation id = %q, want the supplied one echoed", got)
	}

	// otherwise one is generated
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-Id") == "" {
		t.Error("missing correlation id should be generated")
	}
}
