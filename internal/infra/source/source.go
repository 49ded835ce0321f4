// Package source provides remote suppliers of authoritative profiles.
package source

import (
	"context"

	"github.com/vietddude/profilecache/internal/core/domain"
)

// Source fetches the authoritative profile of a subject. A nil profile with a
// nil error means the subject has no record. Errors carry a domain.ErrorKind.
type Source interface {
	Fetch(ctx context.Context, subjectID string) (*domain.Profile, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, subjectID string) (*domain.Profile, error)

func (f Func) Fetch(ctx context.Context, subjectID string) (*domain.Profile, error) {
	return f(ctx, subjectID)
}
