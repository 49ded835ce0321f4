package profile

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/vietddude/profilecache/internal/core/domain"
)

// SessionInspector lists raw session blobs kept by the auth layer.
type SessionInspector interface {
	Blobs(ctx context.Context) ([]string, error)
}

// sessionBlob covers the two shapes written by auth clients: a wrapped
// {"user": {...}} session and a flat identity.
type sessionBlob struct {
	User *sessionUser `json:"user"`
	sessionUser
}

type sessionUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Name         string `json:"name"`
	UserMetadata struct {
		FullName string `json:"full_name"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	} `json:"user_metadata"`
}

func (u sessionUser) identity() domain.Identity {
	id := domain.Identity{ID: u.ID, Email: u.Email, Name: u.Name}
	if id.Name == "" {
		id.Name = u.UserMetadata.FullName
	}
	if id.Name == "" {
		id.Name = u.UserMetadata.Name
	}
	// "authenticated" is the auth layer's audience marker, not an account role.
	role := u.UserMetadata.Role
	if role == "" && u.Role != "authenticated" {
		role = u.Role
	}
	id.Role = domain.Role(strings.ToLower(role))
	return id
}

// findIdentity returns the identity of subjectID from the first blob that
// names it. Blobs that do not parse are skipped.
func findIdentity(blobs []string, subjectID string) (domain.Identity, bool) {
	for _, raw := range blobs {
		var b sessionBlob
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			continue
		}
		u := b.sessionUser
		if b.User != nil {
			u = *b.User
		}
		if u.ID == subjectID && u.ID != "" {
			return u.identity(), true
		}
	}
	return domain.Identity{}, false
}
