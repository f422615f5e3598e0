package domain

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleDriver, RoleAdmin:
		return true
	}
	return false
}
