package domain

import "time"

// Profile is the subject record served by the cache pipeline.
type Profile struct {
	ID        string    `json:"id"                   db:"id"`
	Email     string    `json:"email"                db:"email"`
	FullName  string    `json:"full_name,omitempty"  db:"full_name"`
	Role      Role      `json:"role,omitempty"       db:"role"`
	CompanyID string    `json:"company_id,omitempty" db:"company_id"`
	AvatarURL string    `json:"avatar_url,omitempty" db:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"           db:"updated_at"`
}

// Role is the account role of a subject.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleGuest  Role = "guest"
)

// Identity is the minimal subset of a profile that can be recovered from
// locally stored session data.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Profile builds a minimal profile from the identity subset.
func (i Identity) Profile() *Profile {
	return &Profile{
		ID:       i.ID,
		Email:    i.Email,
		FullName: i.Name,
		Role:     i.Role,
	}
}
