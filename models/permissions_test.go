package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsForRole(t *testing.T) {
	tests := []struct {
		role Role
		has  []Capability
		not  []Capability
	}{
		{RoleOwner, []Capability{CapEditClub, CapDeleteClub, CapManageMembers, CapCreateEvents}, nil},
		{RoleOrganizer, []Capability{CapManageMembers, CapCreateEvents}, []Capability{CapEditClub, CapDeleteClub}},
		{RoleMember, []Capability{CapViewClub, CapRSVP}, []Capability{CapManageMembers, CapCreateEvents, CapEditClub}},
		{RoleGuest, []Capability{CapViewClub}, []Capability{CapRSVP, CapManageMembers, CapCreateEvents}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, cap := range tt.has {
				assert.True(t, HasCapability(tt.role, cap), "%s should have %s", tt.role, cap)
			}
			for _, cap := range tt.not {
				assert.False(t, HasCapability(tt.role, cap), "%s should not have %s", tt.role, cap)
			}
		})
	}
}

func TestCanManageTarget(t *testing.T) {
	tests := []struct {
		name   string
		actor  Role
		target Role
		want   bool
	}{
		{"owner manages organizer", RoleOwner, RoleOrganizer, true},
		{"owner manages member", RoleOwner, RoleMember, true},
		{"owner manages guest", RoleOwner, RoleGuest, true},
		{"owner never a target", RoleOwner, RoleOwner, false},
		{"organizer manages member", RoleOrganizer, RoleMember, true},
		{"organizer manages guest", RoleOrganizer, RoleGuest, true},
		{"organizer cannot manage organizer", RoleOrganizer, RoleOrganizer, false},
		{"organizer cannot manage owner", RoleOrganizer, RoleOwner, false},
		{"member cannot manage", RoleMember, RoleGuest, false},
		{"guest cannot manage", RoleGuest, RoleGuest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanManageTarget(tt.actor, tt.target))
		})
	}
}

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   Role
		newRole Role
		want    bool
	}{
		{"owner promotes to organizer", RoleOwner, RoleOrganizer, true},
		{"owner demotes to guest", RoleOwner, RoleGuest, true},
		{"nobody assigns owner", RoleOwner, RoleOwner, false},
		{"organizer cannot promote to organizer", RoleOrganizer, RoleOrganizer, false},
		{"organizer cannot promote to owner", RoleOrganizer, RoleOwner, false},
		{"organizer demotes member to guest", RoleOrganizer, RoleGuest, true},
		{"member cannot assign", RoleMember, RoleGuest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAssignRole(tt.actor, tt.newRole))
		})
	}
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleOwner))
	assert.True(t, ValidRole(RoleGuest))
	assert.False(t, ValidRole(Role("admin")))
	assert.False(t, ValidRole(Role("")))
}

func TestPermissionsForRoleReturnsCopy(t *testing.T) {
	caps := PermissionsForRole(RoleMember)
	caps[0] = Capability("tampered")
	assert.NotContains(t, PermissionsForRole(RoleMember), Capability("tampered"))
}
