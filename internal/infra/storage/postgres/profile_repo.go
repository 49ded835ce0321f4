package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/profilecache/internal/core/domain"
)

// ProfileRepo reads subject profiles from the profiles table.
type ProfileRepo struct {
	db *DB
}

// NewProfileRepo creates a new PostgreSQL profile repository.
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Fetch retrieves a profile by subject id. A missing row yields (nil, nil).
func (r *ProfileRepo) Fetch(ctx context.Context, subjectID string) (*domain.Profile, error) {
	if subjectID == "" {
		return nil, domain.Errorf(domain.KindMalformed, "postgres.fetch", "empty subject id")
	}

	var p domain.Profile
	err := r.db.GetContext(ctx, &p,
		`SELECT id, email, full_name, role, company_id, avatar_url, updated_at FROM profiles WHERE id = $1`,
		subjectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.KindOf(err), "postgres.fetch",
			fmt.Errorf("failed to get profile: %w", err))
	}
	return &p, nil
}

// Save upserts a profile.
func (r *ProfileRepo) Save(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, company_id, avatar_url, updated_at)
		VALUES (:id, :email, :full_name, :role, :company_id, :avatar_url, :updated_at)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, role = EXCLUDED.role,
		    company_id = EXCLUDED.company_id, avatar_url = EXCLUDED.avatar_url,
		    updated_at = EXCLUDED.updated_at`, p)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
