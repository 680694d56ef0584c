package domain

import "time"

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Identity is the result of a successful identity-provider sign-in.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// User is the loyalty-card holder. Meals only grows, and only through an
// atomic increment at the store.
type User struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Meals       int       `json:"meals"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleFor maps the admin lookup result to a role name.
func RoleFor(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}
