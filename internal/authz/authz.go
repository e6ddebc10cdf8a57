// Package authz implements the flat ownership policy: view, update, and
// delete succeed iff the acting user owns the resource; create and list are
// open to any authenticated user. There is no admin override and no
// delegation.
package authz

import "fmt"

// Owned is any resource with an owning user.
type Owned interface {
	OwnerID() string
}

// CanView reports whether userID may read the resource.
func CanView(userID string, r Owned) bool { return owns(userID, r) }

// CanUpdate reports whether userID may mutate the resource.
func CanUpdate(userID string, r Owned) bool { return owns(userID, r) }

// CanDelete reports whether userID may remove the resource.
func CanDelete(userID string, r Owned) bool { return owns(userID, r) }

// CanCreate reports whether userID may create resources of any kind.
func CanCreate(userID string) bool { return userID != "" }

// CanViewAny reports whether userID may list their own resources.
func CanViewAny(userID string) bool { return userID != "" }

func owns(userID string, r Owned) bool {
	return userID != "" && userID == r.OwnerID()
}

// Denial is the typed outcome the HTTP layer converts into a 403.
type Denial struct {
	Action string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("not permitted to %s this resource", d.Action)
}

// Check returns nil when the action is permitted and a *Denial otherwise.
// action must be one of "view", "update", "delete".
func Check(action, userID string, r Owned) error {
	var ok bool
	switch action {
	case "view":
		ok = CanView(userID, r)
	case "update":
		ok = CanUpdate(userID, r)
	case "delete":
		ok = CanDelete(userID, r)
	}
	if !ok {
		return &Denial{Action: action}
	}
	return nil
}
