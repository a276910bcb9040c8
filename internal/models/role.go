package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the caller's role as asserted by the identity provider. The set is closed: values
// outside the declared constants cannot be parsed, scanned or decoded.
type Role int

const (
	RoleDirector Role = iota + 1
	RoleSecretario
	RoleTribunal
	RoleEstudiante
)

var roleNames = map[Role]string{
	RoleDirector:   "DIRECTOR",
	RoleSecretario: "SECRETARIO",
	RoleTribunal:   "TRIBUNAL",
	RoleEstudiante: "ESTUDIANTE",
}

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleDirector, RoleSecretario, RoleTribunal, RoleEstudiante}
}

// ParseRole accepts the canonical upper-case name, case-insensitively.
func ParseRole(raw string) (Role, error) {
	want := strings.ToUpper(strings.TrimSpace(raw))
	for role, name := range roleNames {
		if name == want {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", raw)
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// IsCoordinator reports whether r may manage topics and assignments.
func (r Role) IsCoordinator() bool {
	return r == RoleDirector || r == RoleSecretario
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return roleNames[r], nil
}
