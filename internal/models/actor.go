package models

// Actor is the resolved identity behind a request: account flags plus profile facts.
// A nil or empty Actor is anonymous.
type Actor struct {
	UserID       string
	Email        string
	Username     string
	IsStaff      bool
	IsSuperuser  bool
	IsFaculty    bool
	DepartmentID *string
}

// Authenticated reports whether the actor represents a signed-in user.
func (a *Actor) Authenticated() bool {
	return a != nil && a.UserID != ""
}

// Owns reports whether the actor is the given owner.
func (a *Actor) Owns(ownerID string) bool {
	return a.Authenticated() && a.UserID == ownerID
}

// IsAdmin reports administrator rights. Staff accounts administer the portal.
func (a *Actor) IsAdmin() bool {
	return a.Authenticated() && (a.IsStaff || a.IsSuperuser)
}

// CanPublish reports whether the actor may make an item owned by ownerID public.
func (a *Actor) CanPublish(ownerID string) bool {
	return a.IsAdmin() || (a.Owns(ownerID) && a.IsFaculty)
}

// CanUnpublish reports whether the actor may make an item owned by ownerID private.
func (a *Actor) CanUnpublish(ownerID string) bool {
	return a.IsAdmin() || a.Owns(ownerID)
}

// CanSetVisibility applies CanPublish or CanUnpublish depending on the requested flag.
func (a *Actor) CanSetVisibility(ownerID string, public bool) bool {
	if public {
		return a.CanPublish(ownerID)
	}
	return a.CanUnpublish(ownerID)
}

// CanDelete reports whether the actor may soft-delete an item owned by ownerID.
func (a *Actor) CanDelete(ownerID string) bool {
	return a.IsAdmin() || a.Owns(ownerID)
}

// CanCreatePublicRoot reports whether a root-level item may be created public.
func (a *Actor) CanCreatePublicRoot() bool {
	return a.IsAdmin() || (a.Authenticated() && a.IsFaculty)
}
