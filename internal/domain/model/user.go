package model

import (
	"strings"
	"time"
)

// Role is the closed set of account privileges, ordered user < admin < super.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleSuper Role = "super"
)

// ParseRole accepts only the three known roles.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(s)) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleSuper:
		return RoleSuper, true
	}
	return "", false
}

// Rank orders roles by privilege; unknown values rank below user.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuper:
		return 3
	}
	return 0
}

// IsElevated reports whether the role may see and manage every order.
func (r Role) IsElevated() bool {
	switch r {
	case RoleAdmin, RoleSuper:
		return true
	case RoleUser:
		return false
	}
	return false
}

// RoleSet is a fixed allow-list consulted by the authorization gate.
type RoleSet []Role

var (
	SuperOnly  = RoleSet{RoleSuper}
	AdminRoles = RoleSet{RoleSuper, RoleAdmin}
	AnyRole    = RoleSet{RoleSuper, RoleAdmin, RoleUser}
)

func (s RoleSet) Contains(r Role) bool {
	for _, allowed := range s {
		if allowed == r {
			return true
		}
	}
	return false
}

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	NormalizedEmail string    `json:"-"`
	HashedPassword  string    `json:"-"` // Not exposed
	Phone           string    `json:"phone,omitempty"`
	ProfileImage    string    `json:"profileImage,omitempty"`
	Role            Role      `json:"role"`
	Disabled        bool      `json:"disabled"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NormalizeEmail is the lookup key for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileUpdate carries the optional self-service fields; nil leaves a column unchanged.
type ProfileUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	ProfileImage *string
}

// AccessUpdate carries admin-controlled fields.
type AccessUpdate struct {
	Role     *Role
	Disabled *bool
}
