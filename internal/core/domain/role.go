package domain

import "time"

// Role is a capability a user can act under in the marketplace.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleProvider
}

// ParseRole converts raw input into a Role, returning ErrInvalidRole for
// anything outside the known set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// RoleAssignment grants a user the right to act as Role. Active is false once
// the assignment has been disabled; only active assignments count as held.
type RoleAssignment struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	Role      Role      `json:"role" bson:"role"`
	Active    bool      `json:"is_active" bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// HoldsRole reports whether assignments contain an active assignment for r.
func HoldsRole(assignments []RoleAssignment, r Role) bool {
	for _, a := range assignments {
		if a.Role == r && a.Active {
			return true
		}
	}
	return false
}

// BusinessDetails is the companion record created alongside a provider role.
type BusinessDetails struct {
	UserID       string    `json:"user_id" bson:"user_id"`
	BusinessName string    `json:"business_name" bson:"business_name"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
