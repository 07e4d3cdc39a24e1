package auth

// MembershipRole is the role of a user inside a store
type MembershipRole = string

const (
	// RoleAdmin can manage the store and its users
	RoleAdmin MembershipRole = "admin"
	// RoleStaff can manage products
	RoleStaff MembershipRole = "staff"
)

// RoleStoreOwner is the identity role marker for store owners.
const RoleStoreOwner = "store_owner"

var assignableRoles = []any{RoleAdmin, RoleStaff}

// IsAssignableRole reports whether role can be given to a provisioned user.
func IsAssignableRole(role string) bool {
	for _, r := range assignableRoles {
		if r == role {
			return true
		}
	}
	return false
}
