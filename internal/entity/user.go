package entity

import (
	"time"

	"github.com/google/uuid"
)

// Back-office roles. Admins manage accounts, managers run batch rescores and
// review the pipeline, sales reps work individual leads.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
)

// ValidRole reports whether role is one the dashboard understands.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleSales:
		return true
	}
	return false
}

// User is a back-office dashboard account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
