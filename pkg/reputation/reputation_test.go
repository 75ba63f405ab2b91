package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

func reputationServer(t *testing.T, malicious bool, submitStatus, resultStatus int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("API-Key") != "k3y" {
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/scan/":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["url"] == "" {
				http.Error(w, "no url", http.StatusBadRequest)
				return
			}
			w.WriteHeader(submitStatus)
			json.NewEncoder(w).Encode(map[string]string{"uuid": "abc-123", "result": "https://scan.example/result/abc-123/"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/result/abc-123/":
			w.WriteHeader(resultStatus)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"verdicts": map[string]interface{}{"overall": map[string]interface{}{"malicious": malicious, "score": 100}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupMalicious(t *testing.T) {
	srv := reputationServer(t, true, http.StatusOK, http.StatusOK)
	c := NewClient("k3y", srv.URL, time.Millisecond)
	v, err := c.Lookup(context.Background(), "https://github.com/acme/widget")
	if err != nil {
		t.Fatal(err)
	}
	findings := Findings(v)
	if len(findings) != 1 || findings[0].Category != diagnostics.URLReputation || findings[0].Severity != diagnostics.High {
		t.Errorf("unexpected findings %v", findings)
	}
}

func TestLookupClean(t *testing.T) {
	srv := reputationServer(t, false, http.StatusOK, http.StatusOK)
	v, err := NewClient("k3y", srv.URL, time.Millisecond).Lookup(context.Background(), "https://github.com/acme/widget")
	if err != nil {
		t.Fatal(err)
	}
	if len(Findings(v)) != 0 {
		t.Error("clean verdict must not produce findings")
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name           string
		key            string
		submit, result int
		want           error
	}{
		{"not configured", "", http.StatusOK, http.StatusOK, ErrNotConfigured},
		{"bad key", "wrong", http.StatusOK, http.StatusOK, ErrLookupFailed},
		{"submission rejected", "k3y", http.StatusTooManyRequests, http.StatusOK, ErrLookupFailed},
		{"result pending", "k3y", http.StatusOK, http.StatusNotFound, ErrLookupFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := reputationServer(t, true, tt.submit, tt.result)
			_, err := NewClient(tt.key, srv.URL, time.Millisecond).Lookup(context.Background(), "https://x.example")
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLookupHonoursContext(t *testing.T) {
	srv := reputationServer(t, true, http.StatusOK, http.StatusOK)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewClient("k3y", srv.URL, time.Hour).Lookup(ctx, "https://x.example")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
