package model

import "fmt"

// Capability is a single permission flag granted to a caller.
type Capability string

const (
	CapComplete Capability = "complete"
	CapCreate   Capability = "create"
	// CapManage covers reshaping tasks: subtasks and deletion.
	CapManage   Capability = "manage"
	CapAdmin    Capability = "admin"
)

// Actor is the authenticated caller of a task operation. The capability set is
// decided by whoever authenticated the request.
type Actor struct {
	UserID       uint
	Capabilities []Capability
}

func (a Actor) Can(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c || have == CapAdmin {
			return true
		}
	}
	return false
}

// Require returns ErrForbidden unless the actor holds every capability.
func (a Actor) Require(caps ...Capability) error {
	for _, c := range caps {
		if !a.Can(c) {
			return fmt.Errorf("%w: %s required", ErrForbidden, c)
		}
	}
	return nil
}

// CapabilitiesForRole maps a stored role onto its capability set.
func CapabilitiesForRole(role string) []Capability {
	switch role {
	case RoleAdmin:
		return []Capability{CapComplete, CapCreate, CapManage, CapAdmin}
	case RoleLeader:
		return []Capability{CapComplete, CapCreate, CapManage}
	default:
		return []Capability{CapComplete}
	}
}
