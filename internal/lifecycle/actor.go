package lifecycle

import "github.com/partvault/partvault/internal/config"

// Actor identifies who is invoking a lifecycle operation. Operations gate on
// role and, for review operations, on authorship.
type Actor struct {
	Name string
	Role string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == config.RoleAdmin
}

// CanDesign reports whether the actor may create and advance revisions.
func (a Actor) CanDesign() bool {
	return a.Role == config.RoleDesigner || a.Role == config.RoleAdmin
}
