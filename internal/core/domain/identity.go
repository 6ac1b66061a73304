package domain

// Identity is the authenticated caller decoded from a bearer token.
type Identity struct {
	ID    int64  `json:"identity_id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsStaff reports whether the identity bypasses ownership checks.
func (i Identity) IsStaff() bool {
	return i.Role.IsStaff()
}

// Can reports whether the identity's role holds p.
func (i Identity) Can(p Permission) bool {
	return HasPermission(i.Role, p)
}

// CanAccessOwnedResource is the single instance-level check. Admins and
// employees may act on any record; a user only on records it owns.
func CanAccessOwnedResource(id Identity, ownerID int64) bool {
	if id.IsStaff() {
		return true
	}
	return id.Role == RoleUser && id.ID == ownerID
}
