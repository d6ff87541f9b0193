package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/club-manager-go/models"
	store "github.com/phillip/club-manager-go/store"
)

// MembershipService owns club membership state and every counter derived
// from it: Club.member_count and the ClubStats member counters. All mutations
// run as one transaction over the membership record and the counters it
// affects, so a caller never observes a partially applied change.
//
// Archiving a club does not cascade: member, event and RSVP records stay
// live, but every membership mutation requires the club to be active.
type MembershipService struct {
	store store.Store
}

func NewMembershipService(st store.Store) *MembershipService {
	return &MembershipService{store: st}
}

type CreateClubInput struct {
	Name        string
	Description string
	MaxMembers  int
	Tags        []string
	IsPrivate   bool
	Settings    models.ClubSettings
	Images      []string
}

// CreateClub creates the club, the owner's membership and the stats document
// in one transaction: either all three exist afterwards or none do.
func (s *MembershipService) CreateClub(ctx context.Context, ownerID primitive.ObjectID, in CreateClubInput) (*models.Club, error) {
	if ownerID.IsZero() {
		return nil, newError(KindValidationFailed, "user", "", "owner identity is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, newError(KindValidationFailed, "club", "", "club name is required")
	}
	if in.MaxMembers < 0 {
		return nil, newError(KindValidationFailed, "club", "", "max_members cannot be negative")
	}

	now := time.Now()
	club := models.Club{
		ID:          primitive.NewObjectID(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      models.ClubActive,
		Settings:    in.Settings,
		MemberCount: 1,
		MaxMembers:  in.MaxMembers,
		Tags:        in.Tags,
		IsPrivate:   in.IsPrivate,
		Images:      in.Images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.IsPrivate || in.Settings.RequireInvite {
		club.JoinCode = uuid.NewString()
	}
	owner := models.ClubMember{
		ID:           primitive.NewObjectID(),
		ClubID:       club.ID,
		UserID:       ownerID,
		Role:         models.RoleOwner,
		Status:       models.MemberActive,
		Permissions:  models.PermissionsForRole(models.RoleOwner),
		JoinedAt:     now,
		LastActiveAt: now,
	}
	stats := models.ClubStats{
		ClubID:         club.ID,
		TotalMembers:   1,
		ActiveMembers:  1,
		LastActivityAt: now,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.InsertOne(ctx, store.ColClubs, club); err != nil {
			return err
		}
		if err := s.store.InsertOne(ctx, store.ColClubMembers, owner); err != nil {
			return err
		}
		return s.store.InsertOne(ctx, store.ColClubStats, stats)
	})
	if err != nil {
		return nil, storeErr(err, "club", club.ID.Hex())
	}
	return &club, nil
}

// JoinClub adds userID to the club with the given role (member or guest).
// A prior inactive or banned record is replaced by a fresh default-role
// record; prior role is never restored. The capacity check and the counter
// increment happen inside the same transaction, guarded against a concurrent
// change of member_count, so a club never exceeds max_members.
func (s *MembershipService) JoinClub(ctx context.Context, clubID, userID primitive.ObjectID, role models.Role, joinCode string) (*models.ClubMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleGuest {
		return nil, newError(KindValidationFailed, "member", "", "can only join as member or guest")
	}

	now := time.Now()
	member := models.ClubMember{
		ID:           primitive.NewObjectID(),
		ClubID:       clubID,
		UserID:       userID,
		Role:         role,
		Status:       models.MemberActive,
		Permissions:  models.PermissionsForRole(role),
		JoinedAt:     now,
		LastActiveAt: now,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var club models.Club
		if err := s.store.Get(ctx, store.ColClubs, bson.M{"_id": clubID}, &club); err != nil {
			return storeErr(err, "club", clubID.Hex())
		}
		if club.Status != models.ClubActive {
			return newError(KindInvalidState, "club", clubID.Hex(), "club is not active")
		}
		if (club.IsPrivate || club.Settings.RequireInvite) && club.JoinCode != joinCode {
			return newError(KindPermissionDenied, "club", clubID.Hex(), "invalid join code")
		}
		if role == models.RoleGuest && !club.Settings.AllowGuests {
			return newError(KindPermissionDenied, "club", clubID.Hex(), "club does not accept guests")
		}
		if club.MaxMembers > 0 && club.MemberCount >= club.MaxMembers {
			return newError(KindConflict, "club", clubID.Hex(), "club is full")
		}

		var existing models.ClubMember
		err := s.store.Get(ctx, store.ColClubMembers, bson.M{"club_id": clubID, "user_id": userID}, &existing)
		switch {
		case err == nil && existing.Status == models.MemberActive:
			return newError(KindConflict, "member", userID.Hex(), "already a member of this club")
		case err == nil:
			// stale inactive/banned record, replaced by the fresh one
			if err := s.store.DeleteOne(ctx, store.ColClubMembers, bson.M{"_id": existing.ID}); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := s.store.InsertOne(ctx, store.ColClubMembers, member); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return newError(KindConflict, "member", userID.Hex(), "already a member of this club")
			}
			return err
		}
		// guard on the observed count: a concurrent join aborts the unit
		// instead of pushing the club past capacity
		err = s.store.UpdateOne(ctx, store.ColClubs,
			bson.M{"_id": clubID, "status": models.ClubActive, "member_count": club.MemberCount},
			bson.M{"$inc": bson.M{"member_count": 1}, "$set": bson.M{"updated_at": now}})
		if err != nil {
			if errors.Is(err, store.ErrNoMatch) {
				return newError(KindConflict, "club", clubID.Hex(), "concurrent membership change, retry")
			}
			return err
		}
		return s.store.UpdateOne(ctx, store.ColClubStats, bson.M{"_id": clubID},
			bson.M{"$inc": bson.M{"total_members": 1, "active_members": 1}, "$set": bson.M{"last_activity_at": now}})
	})
	if err != nil {
		return nil, storeErr(err, "club", clubID.Hex())
	}
	return &member, nil
}

// LeaveClub removes the caller's own membership. The owner cannot leave; the
// club would be left without one.
func (s *MembershipService) LeaveClub(ctx context.Context, clubID, userID primitive.ObjectID) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var member models.ClubMember
		err := s.store.Get(ctx, store.ColClubMembers, bson.M{"club_id": clubID, "user_id": userID}, &member)
		if err != nil || member.Status != models.MemberActive {
			return newError(KindNotFound, "member", userID.Hex(), "not a member of this club")
		}
		if member.Role == models.RoleOwner {
			return newError(KindInvalidState, "member", userID.Hex(), "owner cannot leave the club")
		}
		return s.removeMembership(ctx, clubID, member.ID)
	})
	return storeErr(err, "club", clubID.Hex())
}

// RemoveMember removes the target's membership as an administrative action.
// Self-removal goes through LeaveClub, never through here.
func (s *MembershipService) RemoveMember(ctx context.Context, clubID, actorID, targetID primitive.ObjectID) error {
	if actorID == targetID {
		return newError(KindInvalidState, "member", actorID.Hex(), "cannot remove self, use leave instead")
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		actor, err := s.activeMember(ctx, clubID, actorID)
		if err != nil {
			return newError(KindPermissionDenied, "member", actorID.Hex(), "not an active member of this club")
		}
		var target models.ClubMember
		err = s.store.Get(ctx, store.ColClubMembers, bson.M{"club_id": clubID, "user_id": targetID}, &target)
		if err != nil || target.Status != models.MemberActive {
			return newError(KindNotFound, "member", targetID.Hex(), "member not found in this club")
		}
		if target.Role == models.RoleOwner {
			return newError(KindInvalidState, "member", targetID.Hex(), "the owner cannot be removed")
		}
		if !models.CanManageTarget(actor.Role, target.Role) {
			return newError(KindPermissionDenied, "member", targetID.Hex(), "insufficient role to remove this member")
		}
		return s.removeMembership(ctx, clubID, target.ID)
	})
	return storeErr(err, "club", clubID.Hex())
}

// removeMembership deletes one membership record and walks every counter
// derived from it down by one, inside the caller's transaction.
func (s *MembershipService) removeMembership(ctx context.Context, clubID, memberDocID primitive.ObjectID) error {
	now := time.Now()
	if err := s.store.DeleteOne(ctx, store.ColClubMembers, bson.M{"_id": memberDocID}); err != nil {
		return err
	}
	err := s.store.UpdateOne(ctx, store.ColClubs, bson.M{"_id": clubID},
		bson.M{"$inc": bson.M{"member_count": -1}, "$set": bson.M{"updated_at": now}})
	if err != nil {
		return err
	}
	return s.store.UpdateOne(ctx, store.ColClubStats, bson.M{"_id": clubID},
		bson.M{"$inc": bson.M{"total_members": -1, "active_members": -1}, "$set": bson.M{"last_activity_at": now}})
}

// UpdateMemberRole rewrites the target's role and derived permission set.
// Membership counters are untouched; a role change never changes the count.
// Ownership is not transferable through this operation.
func (s *MembershipService) UpdateMemberRole(ctx context.Context, clubID, actorID, targetID primitive.ObjectID, newRole models.Role) error {
	if !models.ValidRole(newRole) {
		return newError(KindValidationFailed, "member", targetID.Hex(), "invalid role")
	}
	if actorID == targetID {
		return newError(KindInvalidState, "member", actorID.Hex(), "cannot change own role")
	}
	if newRole == models.RoleOwner {
		return newError(KindInvalidState, "member", targetID.Hex(), "ownership cannot be assigned through a role change")
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		actor, err := s.activeMember(ctx, clubID, actorID)
		if err != nil {
			return newError(KindPermissionDenied, "member", actorID.Hex(), "not an active member of this club")
		}
		var target models.ClubMember
		if err := s.store.Get(ctx, store.ColClubMembers, bson.M{"club_id": clubID, "user_id": targetID}, &target); err != nil {
			return newError(KindNotFound, "member", targetID.Hex(), "member not found in this club")
		}
		if target.Role == models.RoleOwner {
			return newError(KindInvalidState, "member", targetID.Hex(), "the owner's role cannot be changed")
		}
		if !models.CanManageTarget(actor.Role, target.Role) || !models.CanAssignRole(actor.Role, newRole) {
			return newError(KindPermissionDenied, "member", targetID.Hex(), "insufficient role for this role change")
		}
		return s.store.UpdateOne(ctx, store.ColClubMembers, bson.M{"_id": target.ID},
			bson.M{"$set": bson.M{
				"role":           newRole,
				"permissions":    models.PermissionsForRole(newRole),
				"last_active_at": time.Now(),
			}})
	})
	return storeErr(err, "club", clubID.Hex())
}

type ClubUpdate struct {
	Name        *string
	Description *string
	MaxMembers  *int
	Tags        []string
	Settings    *models.ClubSettings
	Images      []string
}

// UpdateClub edits club metadata. Owner only.
func (s *MembershipService) UpdateClub(ctx context.Context, clubID, actorID primitive.ObjectID, in ClubUpdate) (*models.Club, error) {
	set := bson.M{"updated_at": time.Now()}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, newError(KindValidationFailed, "club", clubID.Hex(), "club name cannot be empty")
		}
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.MaxMembers != nil {
		if *in.MaxMembers < 0 {
			return nil, newError(KindValidationFailed, "club", clubID.Hex(), "max_members cannot be negative")
		}
		set["max_members"] = *in.MaxMembers
	}
	if in.Tags != nil {
		set["tags"] = in.Tags
	}
	if in.Settings != nil {
		set["settings"] = *in.Settings
	}
	if in.Images != nil {
		set["images"] = in.Images
	}

	var club models.Club
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		actor, err := s.activeMember(ctx, clubID, actorID)
		if err != nil || !models.HasCapability(actor.Role, models.CapEditClub) {
			return newError(KindPermissionDenied, "club", clubID.Hex(), "only the owner can edit the club")
		}
		if err := s.store.UpdateOne(ctx, store.ColClubs, bson.M{"_id": clubID}, bson.M{"$set": set}); err != nil {
			return err
		}
		return s.store.Get(ctx, store.ColClubs, bson.M{"_id": clubID}, &club)
	})
	if err != nil {
		return nil, storeErr(err, "club", clubID.Hex())
	}
	return &club, nil
}

// ArchiveClub soft-deletes a club. Dependent members, events and RSVPs are
// left in place; the active-club precondition on mutations fences them off.
func (s *MembershipService) ArchiveClub(ctx context.Context, clubID, actorID primitive.ObjectID) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		actor, err := s.activeMember(ctx, clubID, actorID)
		if err != nil || !models.HasCapability(actor.Role, models.CapDeleteClub) {
			return newError(KindPermissionDenied, "club", clubID.Hex(), "only the owner can archive the club")
		}
		var club models.Club
		if err := s.store.Get(ctx, store.ColClubs, bson.M{"_id": clubID}, &club); err != nil {
			return storeErr(err, "club", clubID.Hex())
		}
		if club.Status == models.ClubArchived {
			return newError(KindInvalidState, "club", clubID.Hex(), "club is already archived")
		}
		return s.store.UpdateOne(ctx, store.ColClubs, bson.M{"_id": clubID},
			bson.M{"$set": bson.M{"status": models.ClubArchived, "updated_at": time.Now()}})
	})
	return storeErr(err, "club", clubID.Hex())
}

// ReconcileClubCounters re-derives member_count and the stats counters from
// a live count of active membership records. The repair path for drift the
// increment strategy cannot self-correct.
func (s *MembershipService) ReconcileClubCounters(ctx context.Context, clubID primitive.ObjectID) (*models.Club, error) {
	var club models.Club
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Get(ctx, store.ColClubs, bson.M{"_id": clubID}, &club); err != nil {
			return storeErr(err, "club", clubID.Hex())
		}
		n, err := s.store.Count(ctx, store.ColClubMembers,
			bson.M{"club_id": clubID, "status": models.MemberActive})
		if err != nil {
			return err
		}
		count := int(n)
		if count == club.MemberCount {
			return nil
		}
		club.MemberCount = count
		if err := s.store.UpdateOne(ctx, store.ColClubs, bson.M{"_id": clubID},
			bson.M{"$set": bson.M{"member_count": count, "updated_at": time.Now()}}); err != nil {
			return err
		}
		return s.store.UpdateOne(ctx, store.ColClubStats, bson.M{"_id": clubID},
			bson.M{"$set": bson.M{"total_members": count, "active_members": count}})
	})
	if err != nil {
		return nil, storeErr(err, "club", clubID.Hex())
	}
	return &club, nil
}

// CanPerform is the advisory permission query for UI gating. The
// authoritative check is re-run inside each mutating operation.
func (s *MembershipService) CanPerform(ctx context.Context, clubID, actorID primitive.ObjectID, action models.Capability, targetID *primitive.ObjectID) (bool, error) {
	actor, err := s.activeMember(ctx, clubID, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !models.HasCapability(actor.Role, action) {
		return false, nil
	}
	if action == models.CapManageMembers && targetID != nil {
		if *targetID == actorID {
			return false, nil
		}
		var target models.ClubMember
		if err := s.store.Get(ctx, store.ColClubMembers, bson.M{"club_id": clubID, "user_id": *targetID}, &target); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return models.CanManageTarget(actor.Role, target.Role), nil
	}
	return true, nil
}

// MemberPermissions returns the caller's role and capability set in a club,
// or an empty role for non-members.
func (s *MembershipService) MemberPermissions(ctx context.Context, clubID, userID primitive.ObjectID) (models.Role, []models.Capability, error) {
	actor, err := s.activeMember(ctx, clubID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, nil
		}
		return "", nil, err
	}
	return actor.Role, models.PermissionsForRole(actor.Role), nil
}

func (s *MembershipService) GetClub(ctx context.Context, clubID primitive.ObjectID) (*models.Club, error) {
	var club models.Club
	if err := s.store.Get(ctx, store.ColClubs, bson.M{"_id": clubID}, &club); err != nil {
		return nil, storeErr(err, "club", clubID.Hex())
	}
	return &club, nil
}

func (s *MembershipService) GetClubStats(ctx context.Context, clubID primitive.ObjectID) (*models.ClubStats, error) {
	var stats models.ClubStats
	if err := s.store.Get(ctx, store.ColClubStats, bson.M{"_id": clubID}, &stats); err != nil {
		return nil, storeErr(err, "club", clubID.Hex())
	}
	return &stats, nil
}

func (s *MembershipService) ListMembers(ctx context.Context, clubID primitive.ObjectID) ([]models.ClubMember, error) {
	members := []models.ClubMember{}
	err := s.store.Find(ctx, store.ColClubMembers, bson.M{"club_id": clubID, "status": models.MemberActive}, &members)
	return members, err
}

func (s *MembershipService) activeMember(ctx context.Context, clubID, userID primitive.ObjectID) (*models.ClubMember, error) {
	var member models.ClubMember
	err := s.store.Get(ctx, store.ColClubMembers,
		bson.M{"club_id": clubID, "user_id": userID, "status": models.MemberActive}, &member)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// storeErr wraps bare store errors into the service taxonomy; errors that
// already carry a Kind pass through untouched.
func storeErr(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, resource, id, resource+" not found")
	case errors.Is(err, store.ErrDuplicate):
		return newError(KindConflict, resource, id, resource+" already exists")
	case errors.Is(err, store.ErrNoMatch):
		return newError(KindConflict, resource, id, "concurrent modification, retry")
	}
	return err
}
