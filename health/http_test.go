package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlers(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		path     string
		wantCode int
		wantBody string
	}{
		{"liveness ignores checks", Unhealthy("down", nil), "/healthz", http.StatusOK, "OK"},
		{"ready healthy", Healthy("ok"), "/readyz", http.StatusOK, "OK"},
		{"ready degraded", Degraded("busy"), "/readyz", http.StatusOK, "DEGRADED"},
		{"ready unhealthy", Unhealthy("down", nil), "/readyz", http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			agg.Register("cache", fixed("cache", tt.result))
			mux := http.NewServeMux()
			RegisterHandlers(mux, agg)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("cache", fixed("cache", Degraded("cache 95% full").WithDetails(map[string]any{"size": 95})))
	agg.Register("ratelimit", fixed("ratelimit", Unhealthy("gone", ErrCheckFailed)))

	rec := httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" || len(resp.Checks) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Checks["ratelimit"].Error != ErrCheckFailed.Error() {
		t.Errorf("ratelimit error = %q", resp.Checks["ratelimit"].Error)
	}
	if resp.Checks["cache"].Details["size"] != float64(95) {
		t.Errorf("cache details = %v", resp.Checks["cache"].Details)
	}
}

func TestSingleCheckHandler(t *testing.T) {
	agg := NewAggregator()
	agg.Register("cache", fixed("cache", Healthy("ok")))
	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/cache", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	SingleCheckHandler(agg, "nope")(rec, httptest.NewRequest(http.MethodGet, "/health/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d, want 404", rec.Code)
	}
}
