package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/profilecache/internal/core/config"
	"github.com/vietddude/profilecache/internal/core/domain"
)

func newProfileServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/u1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.Profile{ID: "u1", Email: "ada@example.com"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApp_MemoryOnlyPipeline(t *testing.T) {
	srv := newProfileServer(t)

	cfg, err := config.Parse([]byte("source:\n  url: " + srv.URL + "\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	app, err := NewApp(ctx, cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	first := app.Profiles().Get(ctx, "u1")
	if first.Profile == nil || first.Origin != domain.OriginAuthoritative {
		t.Fatalf("unexpected first lookup %+v", first)
	}
	if second := app.Profiles().Get(ctx, "u1"); second.Source != "cache:memory" {
		t.Errorf("expected memory hit, got %+v", second)
	}

	snap := app.Aggregator().Snapshot()
	if snap.Recovery.Calls != 1 || snap.Cache.Writes == 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestApp_StartStop(t *testing.T) {
	srv := newProfileServer(t)
	cfg, err := config.Parse([]byte("server:\n  port: 18931\nsource:\n  url: " + srv.URL + "\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestApp_PostgresSourceRequiresDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = "postgres"

	if _, err := NewApp(context.Background(), cfg); err == nil {
		t.Error("expected error without database")
	}
}
