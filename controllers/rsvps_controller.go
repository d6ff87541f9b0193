package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	services "github.com/phillip/club-manager-go/services"
)

// ---------------- SET RSVP ----------------
// Idempotent upsert: repeating the same response changes nothing. Capacity
// is never enforced here; callers read the summary's full flag.
func SetRSVP(svc *services.AttendanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		eventID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var input struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rsvp, err := svc.SetRSVP(ctx, eventID, userID, input.Status)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		summary, err := svc.GetRSVPSummary(ctx, eventID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"rsvp": rsvp, "summary": summary})
	}
}

// ---------------- SUMMARY ----------------
func GetRSVPSummary(svc *services.AttendanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		summary, err := svc.GetRSVPSummary(ctx, eventID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

// ---------------- LIST ----------------
func ListRSVPs(svc *services.AttendanceService) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rsvps, err := svc.ListRSVPs(ctx, eventID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, rsvps)
	}
}
