package models

// Role represents a member's role within a club.
type Role string

const (
	RoleOwner     Role = "owner"     // Full control, exactly one per club
	RoleOrganizer Role = "organizer" // Manage members and events
	RoleMember    Role = "member"    // Regular participation
	RoleGuest     Role = "guest"     // Limited participation
)

// Capability represents a specific action within a club.
type Capability string

const (
	CapEditClub      Capability = "club:edit"
	CapDeleteClub    Capability = "club:delete"
	CapManageMembers Capability = "club:manage_members"
	CapCreateEvents  Capability = "event:create"
	CapViewClub      Capability = "club:view"
	CapRSVP          Capability = "event:rsvp"
)

// rolePermissions enumerates capabilities per role. Capabilities are
// enumerated explicitly rather than inherited down the role order.
var rolePermissions = map[Role][]Capability{
	RoleOwner:     {CapEditClub, CapDeleteClub, CapManageMembers, CapCreateEvents, CapViewClub, CapRSVP},
	RoleOrganizer: {CapManageMembers, CapCreateEvents, CapViewClub, CapRSVP},
	RoleMember:    {CapViewClub, CapRSVP},
	RoleGuest:     {CapViewClub},
}

// rolePrivilege is the fixed total order owner > organizer > member > guest,
// used only for comparing actor against target on manage-member actions.
var rolePrivilege = map[Role]int{
	RoleOwner:     4,
	RoleOrganizer: 3,
	RoleMember:    2,
	RoleGuest:     1,
}

func ValidRole(r Role) bool {
	_, ok := rolePrivilege[r]
	return ok
}

// PermissionsForRole returns the capability set a role carries. The returned
// slice is a copy; callers may store it on a ClubMember document.
func PermissionsForRole(r Role) []Capability {
	caps := rolePermissions[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// HasCapability reports whether a role carries a capability.
func HasCapability(r Role, c Capability) bool {
	for _, have := range rolePermissions[r] {
		if have == c {
			return true
		}
	}
	return false
}

// CanManageTarget reports whether an actor with actorRole may remove the
// target or change the target's role. The owner may act on anyone but the
// owner; an organizer only on members and guests. Owners are never a valid
// target while the club is active, and self-targeting is rejected by the
// caller before privilege is consulted.
func CanManageTarget(actorRole, targetRole Role) bool {
	if !HasCapability(actorRole, CapManageMembers) {
		return false
	}
	if targetRole == RoleOwner {
		return false
	}
	if actorRole == RoleOrganizer && rolePrivilege[targetRole] >= rolePrivilege[RoleOrganizer] {
		return false
	}
	return true
}

// CanAssignRole reports whether an actor may hand out newRole. Nobody assigns
// owner through a role change; an organizer may not mint more organizers.
func CanAssignRole(actorRole, newRole Role) bool {
	if newRole == RoleOwner {
		return false
	}
	if actorRole == RoleOrganizer && rolePrivilege[newRole] >= rolePrivilege[RoleOrganizer] {
		return false
	}
	return HasCapability(actorRole, CapManageMembers)
}
