package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/vietddude/profilecache/internal/core/domain"
)

func TestHTTPSource_Fetch(t *testing.T) {
	want := domain.Profile{ID: "u1", Email: "ada@example.com", Role: domain.RoleAdmin}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/profiles/u1":
			_ = json.NewEncoder(w).Encode(want)
		case "/profiles/null":
			_, _ = w.Write([]byte("null"))
		case "/profiles/flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/profiles/broken":
			_, _ = w.Write([]byte("{not json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL+"/", "secret", time.Second)
	ctx := context.Background()

	got, err := s.Fetch(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	for _, id := range []string{"null", "missing"} {
		if p, err := s.Fetch(ctx, id); p != nil || err != nil {
			t.Errorf("%s: expected no record, got (%v, %v)", id, p, err)
		}
	}

	if _, err := s.Fetch(ctx, "flaky"); domain.KindOf(err) != domain.KindNetwork {
		t.Errorf("503: expected network kind, got %v", err)
	}
	if _, err := s.Fetch(ctx, "broken"); domain.KindOf(err) != domain.KindMalformed {
		t.Errorf("bad body: expected malformed kind, got %v", err)
	}
	if _, err := s.Fetch(ctx, " "); domain.KindOf(err) != domain.KindMalformed {
		t.Errorf("empty id: expected malformed kind, got %v", err)
	}

	unauth := NewHTTPSource(srv.URL, "wrong", time.Second)
	if _, err := unauth.Fetch(ctx, "u1"); domain.KindOf(err) != domain.KindUnauthorized {
		t.Errorf("expected unauthorized kind, got %v", err)
	}
}

func TestHTTPSource_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL, "", 20*time.Millisecond)
	_, err := s.Fetch(context.Background(), "u1")
	if domain.KindOf(err) != domain.KindTimeout {
		t.Errorf("expected timeout kind, got %v", err)
	}
}

func TestHTTPSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPSource(addr, "", time.Second).Fetch(context.Background(), "u1")
	if kind := domain.KindOf(err); kind != domain.KindNetwork {
		t.Errorf("expected network kind, got %v (%v)", kind, err)
	}
}
