package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/club-manager-go/config"
	models "github.com/phillip/club-manager-go/models"
	services "github.com/phillip/club-manager-go/services"
	utils "github.com/phillip/club-manager-go/utils"
)

// ---------------- JOIN ----------------
func JoinClub(cfg *config.Config, svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var input struct {
			Role     string `json:"role"`
			JoinCode string `json:"join_code"`
		}
		// body is optional; defaults join as member
		_ = c.ShouldBindJSON(&input)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		member, err := svc.JoinClub(ctx, clubID, userID, models.Role(input.Role), input.JoinCode)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		// --- Best-effort welcome email ---
		go func() {
			emailCtx, emailCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer emailCancel()
			var user models.User
			userCol := cfg.MongoClient.Database(cfg.DBName).Collection("users")
			if err := userCol.FindOne(emailCtx, bson.M{"_id": userID}).Decode(&user); err != nil {
				return
			}
			club, err := svc.GetClub(emailCtx, clubID)
			if err != nil {
				return
			}
			utils.SendWelcomeEmail(user.Email, user.Name, club.Name)
		}()

		c.JSON(http.StatusCreated, member)
	}
}

// ---------------- LEAVE ----------------
func LeaveClub(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.LeaveClub(ctx, clubID, userID); err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "left club", "id": clubID.Hex()})
	}
}

// ---------------- REMOVE MEMBER ----------------
func RemoveMember(cfg *config.Config, svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}
		targetID, ok := pathID(c, "memberId")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.RemoveMember(ctx, clubID, userID, targetID); err != nil {
			abortServiceError(c, err)
			return
		}

		// --- Best-effort removal notice ---
		go func() {
			emailCtx, emailCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer emailCancel()
			var user models.User
			userCol := cfg.MongoClient.Database(cfg.DBName).Collection("users")
			if err := userCol.FindOne(emailCtx, bson.M{"_id": targetID}).Decode(&user); err != nil {
				return
			}
			club, err := svc.GetClub(emailCtx, clubID)
			if err != nil {
				return
			}
			utils.SendRemovalEmail(user.Email, user.Name, club.Name)
		}()

		c.JSON(http.StatusOK, gin.H{"message": "member removed", "id": targetID.Hex()})
	}
}

// ---------------- UPDATE ROLE ----------------
func UpdateMemberRole(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}
		targetID, ok := pathID(c, "memberId")
		if !ok {
			return
		}

		var input struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.UpdateMemberRole(ctx, clubID, userID, targetID, models.Role(input.Role)); err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "role updated", "id": targetID.Hex(), "role": input.Role})
	}
}

// ---------------- LIST MEMBERS ----------------
func ListMembers(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		members, err := svc.ListMembers(ctx, clubID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, members)
	}
}

// ---------------- PERMISSIONS ----------------
// Advisory permission query for UI gating; the authoritative check re-runs
// inside every mutating operation.
func GetPermissions(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		role, caps, err := svc.MemberPermissions(ctx, clubID, userID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		resp := gin.H{"role": role, "capabilities": caps, "is_member": role != ""}

		// optional targeted check: ?action=club:manage_members&target=<id>
		if action := c.Query("action"); action != "" {
			var target *primitive.ObjectID
			if t := c.Query("target"); t != "" {
				tid, err := primitive.ObjectIDFromHex(t)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target"})
					return
				}
				target = &tid
			}
			allowed, err := svc.CanPerform(ctx, clubID, userID, models.Capability(action), target)
			if err != nil {
				abortServiceError(c, err)
				return
			}
			resp["allowed"] = allowed
		}

		c.JSON(http.StatusOK, resp)
	}
}
