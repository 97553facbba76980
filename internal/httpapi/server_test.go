package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ndnrtc/internal/stats"
)

func TestHealthAndStats(t *testing.T) {
	counters := stats.New()
	counters.Incr(stats.PlayedNum, 5)
	counters.Set(stats.LastPlayedNo, 42)

	api := New("consumer", counters)
	ts := httptest.NewServer(api.Echo())
	defer ts.Close()

	healthResp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", healthResp.StatusCode)
	}
	var health healthResponse
	if err := json.NewDecoder(healthResp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Role != "consumer" {
		t.Fatalf("unexpected health payload: %#v", health)
	}

	statsResp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer statsResp.Body.Close()
	if statsResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /stats, got %d", statsResp.StatusCode)
	}
	var snapshot map[string]int64
	if err := json.NewDecoder(statsResp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if snapshot["PlayedNum"] != 5 {
		t.Fatalf("PlayedNum = %d, want 5", snapshot["PlayedNum"])
	}
	if snapshot["LastPlayedNo"] != 42 {
		t.Fatalf("LastPlayedNo = %d, want 42", snapshot["LastPlayedNo"])
	}
}
