package staff

import (
	"errors"
	"strings"
)

// Role is ordered: every role carries the privileges of the roles below it.
type Role int

const (
	RoleStaff Role = iota + 1
	RoleManager
	RoleAdmin
)

var ErrInvalidRole = errors.New("invalid_role")

func (r Role) String() string {
	switch r {
	case RoleStaff:
		return "STAFF"
	case RoleManager:
		return "MANAGER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return ""
	}
}

func (r Role) Valid() bool {
	return r >= RoleStaff && r <= RoleAdmin
}

// Satisfies reports whether r meets the minimum role required.
func (r Role) Satisfies(required Role) bool {
	return r.Valid() && r >= required
}

func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STAFF":
		return RoleStaff, nil
	case "MANAGER":
		return RoleManager, nil
	case "ADMIN":
		return RoleAdmin, nil
	default:
		return 0, ErrInvalidRole
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, ErrInvalidRole
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CanCreate reports whether an account with role r may create an account
// with role target. Admins create managers and staff; managers create staff.
func (r Role) CanCreate(target Role) bool {
	switch r {
	case RoleAdmin:
		return target == RoleManager || target == RoleStaff
	case RoleManager:
		return target == RoleStaff
	default:
		return false
	}
}
