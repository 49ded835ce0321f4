package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/profilecache/internal/cache"
	"github.com/vietddude/profilecache/internal/core/domain"
	"github.com/vietddude/profilecache/internal/health"
	"github.com/vietddude/profilecache/internal/metrics"
	"github.com/vietddude/profilecache/internal/recovery"
)

func TestPrintStatus(t *testing.T) {
	d := health.Detailed{
		Report: metrics.Report{Snapshot: metrics.Snapshot{
			Cache: metrics.CacheSnapshot{
				Stats:   cache.Stats{Tiers: []cache.TierStats{{Name: domain.TierMemory, Hits: 3, Misses: 1}}},
				Lookups: 4,
				HitRate: 0.75,
			},
			Recovery: metrics.RecoverySnapshot{Stats: recovery.Stats{Calls: 2}, SuccessRate: 1},
			Health:   metrics.HealthGood,
		}},
		Status: health.StatusHealthy,
		Checks: map[string]string{"redis": "ok"},
	}

	var buf bytes.Buffer
	printStatus(&buf, d)
	out := buf.String()

	for _, want := range []string{"healthy", "GOOD", "75.00%", "memory", "redis: ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/profiles/a%2Fb", "/profiles/a/b":
			w.Header().Set("X-Profile-Origin", "derived")
			_, _ = w.Write([]byte("{}"))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	prev := serverURL
	serverURL = srv.URL
	defer func() { serverURL = prev }()

	_, header, err := call(context.Background(), http.MethodGet, profilePath("a/b"))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if header.Get("X-Profile-Origin") != "derived" {
		t.Errorf("unexpected header %v", header)
	}

	if _, _, err := call(context.Background(), http.MethodGet, "/nope"); err == nil {
		t.Error("expected error for 500")
	}
}
