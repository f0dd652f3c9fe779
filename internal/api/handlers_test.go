package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-advisor/config"
	"signal-advisor/internal/engine"
	"signal-advisor/internal/market"
	"signal-advisor/internal/predictor"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.MarketConfig.MockMode = true

	registry := engine.NewRegistry(cfg.SignalConfig)
	eng := engine.New(cfg, market.NewMockClient(), predictor.NewAdapter(predictor.NewMomentum()), registry, nil, zerolog.Nop())
	return NewServer(cfg.ServerConfig, eng, nil, zerolog.Nop())
}

func seedSignal(t *testing.T, s *Server, id, symbol string) {
	t.Helper()
	err := s.engine.Registry().Register(&engine.Signal{
		ID:         id,
		Symbol:     symbol,
		Interval:   "1h",
		Direction:  "buy",
		Strength:   engine.StrengthMedium,
		Confidence: 0.4,
		EntryPrice: 100000,
		StopLoss:   98800,
		TakeProfit: 101800,
	})
	if err != nil {
		t.Fatalf("seed signal: %v", err)
	}
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)

	w := doRequest(s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v, want ok", resp["status"])
	}
}

func TestGenerateRequiresSymbol(t *testing.T) {
	s := testServer(t)

	w := doRequest(s, http.MethodPost, "/api/signals/generate", map[string]string{"interval": "1h"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGenerateReturnsOutcome(t *testing.T) {
	s := testServer(t)

	w := doRequest(s, http.MethodPost, "/api/signals/generate", map[string]string{"symbol": "BTCUSDT", "interval": "1h"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var outcome engine.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	// Either branch of the outcome is valid; it must explain itself
	if !outcome.Emitted() && outcome.Reason == "" {
		t.Error("suppressed outcome must carry a reason")
	}
}

func TestActiveEndpoint(t *testing.T) {
	s := testServer(t)
	seedSignal(t, s, "sig-1", "BTCUSDT")

	w := doRequest(s, http.MethodGet, "/api/signals/active", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Signals []engine.Signal `json:"signals"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Signals[0].ID != "sig-1" {
		t.Errorf("unexpected active set: %+v", resp)
	}
}

func TestHistoryEndpointLimit(t *testing.T) {
	s := testServer(t)
	seedSignal(t, s, "sig-1", "SYM1")
	seedSignal(t, s, "sig-2", "SYM2")
	seedSignal(t, s, "sig-3", "SYM3")

	w := doRequest(s, http.MethodGet, "/api/signals/history?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Signals []engine.Signal `json:"signals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Signals) != 2 {
		t.Errorf("expected 2 entries, got %d", len(resp.Signals))
	}
}

func TestHistoryEndpointRejectsBadLimit(t *testing.T) {
	s := testServer(t)

	for _, limit := range []string{"0", "-1", "abc"} {
		w := doRequest(s, http.MethodGet, "/api/signals/history?limit="+limit, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, w.Code)
		}
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	s := testServer(t)
	seedSignal(t, s, "sig-1", "BTCUSDT")

	w := doRequest(s, http.MethodPut, "/api/signals/sig-1/status", map[string]string{"status": "closed"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var sig engine.Signal
	if err := json.Unmarshal(w.Body.Bytes(), &sig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sig.Status != engine.StatusClosed {
		t.Errorf("status = %s, want closed", sig.Status)
	}
}

func TestUpdateStatusUnknownSignal(t *testing.T) {
	s := testServer(t)

	w := doRequest(s, http.MethodPut, "/api/signals/missing/status", map[string]string{"status": "closed"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateStatusRejectsBogusState(t *testing.T) {
	s := testServer(t)
	seedSignal(t, s, "sig-1", "BTCUSDT")

	w := doRequest(s, http.MethodPut, "/api/signals/sig-1/status", map[string]string{"status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("client") {
		t.Error("fourth request should be rejected")
	}
	if !rl.Allow("other") {
		t.Error("limits must be per client")
	}
}
