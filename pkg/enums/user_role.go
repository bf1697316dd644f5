package enums

import "fmt"

// UserRole distinguishes regular shoppers from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	return u == UserRoleUser || u == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	switch UserRole(value) {
	case UserRoleUser:
		return UserRoleUser, nil
	case UserRoleAdmin:
		return UserRoleAdmin, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
