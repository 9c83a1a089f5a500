package core

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized is returned to anonymous callers of user-data operations.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated caller lacks the admin role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidPrincipal is returned when an operation targets the anonymous principal.
	ErrInvalidPrincipal = errors.New("invalid principal")
)

// RolePolicy decides the effective role of a principal.
type RolePolicy struct {
	admins map[Principal]struct{}
}

// NewRolePolicy builds a policy in which the listed principals are always admins.
func NewRolePolicy(admins []string) RolePolicy {
	p := RolePolicy{admins: make(map[Principal]struct{}, len(admins))}
	for _, a := range admins {
		if a = strings.TrimSpace(a); a != "" {
			p.admins[Principal(a)] = struct{}{}
		}
	}
	return p
}

// Role returns the effective role. assigned is the role stored by an admin, if any.
// Configured admins cannot be demoted.
func (p RolePolicy) Role(caller Principal, assigned *UserRole) UserRole {
	if caller.IsAnonymous() {
		return RoleGuest
	}
	if _, ok := p.admins[caller]; ok {
		return RoleAdmin
	}
	if assigned != nil {
		return *assigned
	}
	return RoleUser
}

// RequireCaller returns ErrUnauthorized for the anonymous principal.
func RequireCaller(caller Principal) error {
	if caller.IsAnonymous() {
		return ErrUnauthorized
	}
	return nil
}
