package user

// Role is carried in the access token's "role" claim.
type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // HR / line manager
	RoleEmployee Role = "employee" // Regular employee
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee:
		return true
	}
	return false
}
