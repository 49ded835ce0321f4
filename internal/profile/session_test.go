package profile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vietddude/profilecache/internal/core/domain"
)

func TestFindIdentity(t *testing.T) {
	blobs := []string{
		`{"id":"flat","email":"flat@example.com","name":"Flat","role":"admin"}`,
		`{"user":{"id":"wrapped","email":"w@example.com","role":"authenticated","user_metadata":{"name":"W"}}}`,
		`[1,2,3]`,
	}

	tests := []struct {
		id   string
		want domain.Identity
		ok   bool
	}{
		{"flat", domain.Identity{ID: "flat", Email: "flat@example.com", Name: "Flat", Role: domain.RoleAdmin}, true},
		{"wrapped", domain.Identity{ID: "wrapped", Email: "w@example.com", Name: "W"}, true},
		{"missing", domain.Identity{}, false},
		{"", domain.Identity{}, false},
	}

	for _, tt := range tests {
		got, ok := findIdentity(blobs, tt.id)
		if ok != tt.ok {
			t.Errorf("%q: ok=%v, want %v", tt.id, ok, tt.ok)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%q: identity mismatch (-want +got):\n%s", tt.id, diff)
		}
	}
}
