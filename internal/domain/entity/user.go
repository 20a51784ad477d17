package entity

import "time"

// Role is a permission group a user belongs to. A user may hold several
// roles at once; checks are set membership, not exclusion.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleReviewer  Role = "REVIEWER"
	RoleValidator Role = "VALIDATOR"
)

var validRoles = map[Role]bool{
	RoleOwner:     true,
	RoleReviewer:  true,
	RoleValidator: true,
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// User represents an account that acts on reports
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole returns true if the user holds the given role
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
