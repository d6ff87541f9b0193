package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	config "github.com/phillip/club-manager-go/config"
	models "github.com/phillip/club-manager-go/models"
	services "github.com/phillip/club-manager-go/services"
	utils "github.com/phillip/club-manager-go/utils"
)

// ---------------- CREATE ----------------
func CreateClub(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		// --- Bind form fields ---
		var input struct {
			Name          string   `form:"name" binding:"required"`
			Description   string   `form:"description"`
			MaxMembers    int      `form:"max_members"`
			Tags          []string `form:"tags"`
			IsPrivate     bool     `form:"is_private"`
			AllowGuests   bool     `form:"allow_guests"`
			RequireInvite bool     `form:"require_invite"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// --- Handle file uploads ---
		form, err := c.MultipartForm()
		if err != nil && err != http.ErrNotMultipart {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
			return
		}

		var imageURLs []string
		if form != nil {
			files := form.File["images"] // key must be "images"
			for _, fileHeader := range files {
				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open file"})
					return
				}

				url, err := utils.UploadClubImage(file, fileHeader)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{
						"error":   "image upload failed",
						"details": err.Error(),
						"file":    fileHeader.Filename,
					})
					return
				}

				imageURLs = append(imageURLs, url)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		club, err := svc.CreateClub(ctx, userID, services.CreateClubInput{
			Name:        input.Name,
			Description: input.Description,
			MaxMembers:  input.MaxMembers,
			Tags:        input.Tags,
			IsPrivate:   input.IsPrivate,
			Settings:    models.ClubSettings{AllowGuests: input.AllowGuests, RequireInvite: input.RequireInvite},
			Images:      imageURLs,
		})
		if err != nil {
			abortServiceError(c, err)
			return
		}

		// the creator needs the join code to hand out; it is hidden from
		// regular club reads
		c.JSON(http.StatusCreated, gin.H{"club": club, "join_code": club.JoinCode})
	}
}

// ---------------- LIST ----------------
func ListClubs(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		col := cfg.MongoClient.Database(cfg.DBName).Collection("clubs")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// --- Build filter ---
		filter := bson.M{"status": models.ClubActive, "is_private": false}
		if q := c.Query("q"); q != "" {
			filter["name"] = bson.M{"$regex": q, "$options": "i"}
		}
		if tag := c.Query("tag"); tag != "" {
			filter["tags"] = tag
		}

		// --- Fetch data ---
		cursor, err := col.Find(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch clubs"})
			return
		}

		var clubs []models.Club
		if err := cursor.All(ctx, &clubs); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decode clubs"})
			return
		}

		if len(clubs) == 0 {
			c.JSON(http.StatusOK, []models.Club{})
			return
		}

		// --- Pick the most recently updated club ---
		latest := clubs[0]
		for _, cl := range clubs {
			if cl.UpdatedAt.After(latest.UpdatedAt) {
				latest = cl
			}
		}

		// --- Generate ETag from latest club ---
		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, clubs)
	}
}

// ---------------- GET ----------------
func GetClub(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		club, err := svc.GetClub(ctx, clubID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		etag := utils.GenerateETag(club.ID, club.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, club)
	}
}

// ---------------- UPDATE ----------------
func UpdateClub(svc *services.MembershipService) gin.HandlerFunc {
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
			Name        *string  `form:"name"`
			Description *string  `form:"description"`
			MaxMembers  *int     `form:"max_members"`
			Tags        []string `form:"tags"`
			Images      []string `form:"images"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// --- Handle new image uploads (multipart form) ---
		newImageURLs := []string{}
		form, _ := c.MultipartForm()
		if form != nil {
			files := form.File["new_images"] // key = "new_images"
			for _, fileHeader := range files {
				file, err := fileHeader.Open()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open image"})
					return
				}
				url, err := utils.UploadClubImage(file, fileHeader)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "image upload failed", "details": err.Error()})
					return
				}
				newImageURLs = append(newImageURLs, url)
			}
		}

		update := services.ClubUpdate{
			Name:        input.Name,
			Description: input.Description,
			MaxMembers:  input.MaxMembers,
			Tags:        input.Tags,
		}
		if input.Images != nil || len(newImageURLs) > 0 {
			update.Images = append(input.Images, newImageURLs...)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		existing, err := svc.GetClub(ctx, clubID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		club, err := svc.UpdateClub(ctx, clubID, userID, update)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		// 🔹 Clean up images that were dropped from the club
		if update.Images != nil {
			kept := map[string]bool{}
			for _, img := range club.Images {
				kept[img] = true
			}
			for _, img := range existing.Images {
				if !kept[img] {
					utils.DeleteFromCloudinary(img)
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "club updated successfully",
			"club":    club,
		})
	}
}

// ---------------- ARCHIVE ----------------
func ArchiveClub(svc *services.MembershipService) gin.HandlerFunc {
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

		if err := svc.ArchiveClub(ctx, clubID, userID); err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "club archived",
			"id":      clubID.Hex(),
		})
	}
}

// ---------------- STATS ----------------
func GetClubStats(svc *services.MembershipService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stats, err := svc.GetClubStats(ctx, clubID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, stats)
	}
}

// ---------------- RECONCILE ----------------
// Re-derives member_count from the live membership set; repair endpoint for
// counter drift.
func ReconcileClub(svc *services.MembershipService) gin.HandlerFunc {
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

		allowed, err := svc.CanPerform(ctx, clubID, userID, models.CapManageMembers, nil)
		if err != nil {
			abortServiceError(c, err)
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "no permission to reconcile this club"})
			return
		}

		club, err := svc.ReconcileClubCounters(ctx, clubID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "counters reconciled",
			"member_count": club.MemberCount,
		})
	}
}
