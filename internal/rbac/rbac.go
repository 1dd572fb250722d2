package rbac

// Role constants
const (
	RoleTester  = "tester"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Permission constants
const (
	PermView        = "view"
	PermViewDeleted = "view_deleted"
	PermExecute     = "execute" // start and finish own results
	PermApprove     = "approve" // approve and reject finished results
	PermManage      = "manage"  // cycles, runs, included cases
	PermAssign      = "assign"  // assign included cases to testers
	PermDelete      = "delete"  // soft delete cycles and runs
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleTester: {
		PermView, PermExecute,
	},
	RoleManager: {
		PermView, PermExecute, PermApprove, PermManage, PermAssign,
		// Manager CANNOT: PermDelete, PermViewDeleted
	},
	RoleAdmin: {
		PermView, PermViewDeleted, PermExecute, PermApprove, PermManage, PermAssign, PermDelete,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsValidRole reports whether role is known.
func IsValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
