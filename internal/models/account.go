package models

import (
	"strings"
	"time"
)

// Role represents an account's role in the marketplace.
type Role string

const (
	RoleStudent Role = "student"
	RoleUser    Role = "user"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// DefaultRole is reported for emails without an account.
const DefaultRole = RoleUser

// ParseRole normalises a role name, accepting any letter case.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleStudent, RoleUser, RoleTutor, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Account is a registered marketplace user stored in the accounts table.
type Account struct {
	ID        string    `db:"id" json:"id"`
	UID       *string   `db:"uid" json:"uid,omitempty"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Phone     string    `db:"phone" json:"phone"`
	Role      Role      `db:"role" json:"role"`
	Image     *string   `db:"image" json:"image,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// AccountFilter captures filtering criteria for listing accounts.
type AccountFilter struct {
	Role     *Role
	Search   string
	Page     int
	PageSize int
}
