package model

import (
	"errors"
	"strings"
	"time"
)

// Role is the closed set of account types.  BUYER accounts purchase
// tickets; PROMOTER accounts create and manage events.  The value is
// stored verbatim in the users.role column and in the JWT "role" claim.
type Role string

const (
	RoleBuyer    Role = "BUYER"
	RolePromoter Role = "PROMOTER"
)

// ErrUnknownRole is returned by ParseRole for any value outside the
// two-variant set.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole normalizes and validates a role string.  Matching is
// exhaustive: anything that is not exactly BUYER or PROMOTER (after
// trimming and upper-casing) is rejected rather than defaulted.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer, nil
	case RolePromoter:
		return RolePromoter, nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid reports whether r is one of the two defined variants.
func (r Role) Valid() bool { return r == RoleBuyer || r == RolePromoter }

// User mirrors the 'users' table.  Promoters own zero or more events;
// buyers own zero or more tickets.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email (unique)
	PasswordHash string    // users.password_hash
	Role         Role      // users.role (BUYER | PROMOTER)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
