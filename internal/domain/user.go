package domain

import "time"

type UserID string

type User struct {
	ID             UserID     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	IsActive       bool       `json:"is_active"`
	IsSuperuser    bool       `json:"is_superuser"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// ProfilePatch carries the optional fields of a profile update. Nil means unchanged.
type ProfilePatch struct {
	Username  *string
	Email     *string
	Bio       *string
	AvatarURL *string
}

func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Bio == nil && p.AvatarURL == nil
}
