package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	services "github.com/phillip/club-manager-go/services"
	utils "github.com/phillip/club-manager-go/utils"
)

// parseEventTime accepts RFC3339 plus a few lenient fallback layouts
func parseEventTime(raw string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return parsed, nil
	}
	layouts := []string{"2006-01-02", "2006-01-02 15:04", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, e := time.Parse(layout, raw); e == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ---------------- CREATE ----------------
func CreateEvent(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		// --- Bind form fields ---
		var input struct {
			Title        string `form:"title" binding:"required"`
			Description  string `form:"description"`
			Location     string `form:"location"`
			StartsAt     string `form:"starts_at" binding:"required"`
			MaxAttendees int    `form:"max_attendees"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		startsAt, err := parseEventTime(input.StartsAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid starts_at format, use RFC3339 or YYYY-MM-DD"})
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

				url, err := utils.UploadEventImage(file, fileHeader)
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

		event, err := svc.CreateEvent(ctx, clubID, userID, services.CreateEventInput{
			Title:        input.Title,
			Description:  input.Description,
			Location:     input.Location,
			StartsAt:     startsAt,
			MaxAttendees: input.MaxAttendees,
			Images:       imageURLs,
		})
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, event)
	}
}

// ---------------- LIST ----------------
func ListClubEvents(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clubID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		events, err := svc.ListClubEvents(ctx, clubID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		if len(events) == 0 {
			c.JSON(http.StatusOK, events)
			return
		}

		// --- Pick the most recently updated event ---
		latest := events[0]
		for _, ev := range events {
			if ev.UpdatedAt.After(latest.UpdatedAt) {
				latest = ev
			}
		}

		etag := utils.GenerateETag(latest.ID, latest.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)
		c.Header("Last-Modified", latest.UpdatedAt.UTC().Format(http.TimeFormat))

		c.JSON(http.StatusOK, events)
	}
}

// ---------------- GET ----------------
func GetEvent(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event, err := svc.GetEvent(ctx, eventID)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		etag := utils.GenerateETag(event.ID, event.UpdatedAt)
		if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
			c.Status(http.StatusNotModified)
			return
		}
		c.Header("ETag", etag)

		c.JSON(http.StatusOK, event)
	}
}

// ---------------- UPDATE ----------------
func UpdateEvent(svc *services.EventService) gin.HandlerFunc {
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
			Title        *string  `form:"title"`
			Description  *string  `form:"description"`
			Location     *string  `form:"location"`
			StartsAt     *string  `form:"starts_at"`
			MaxAttendees *int     `form:"max_attendees"`
			Images       []string `form:"images"`
		}
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		update := services.EventUpdate{
			Title:        input.Title,
			Description:  input.Description,
			Location:     input.Location,
			MaxAttendees: input.MaxAttendees,
		}
		if input.StartsAt != nil && *input.StartsAt != "" {
			t, err := parseEventTime(*input.StartsAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid starts_at format, use RFC3339 or YYYY-MM-DD"})
				return
			}
			update.StartsAt = &t
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
				url, err := utils.UploadEventImage(file, fileHeader)
				file.Close()
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "image upload failed", "details": err.Error()})
					return
				}
				newImageURLs = append(newImageURLs, url)
			}
		}
		if input.Images != nil || len(newImageURLs) > 0 {
			update.Images = append(input.Images, newImageURLs...)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		event, err := svc.UpdateEvent(ctx, eventID, userID, update)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "event updated successfully",
			"event":   event,
		})
	}
}

// ---------------- CANCEL ----------------
func CancelEvent(svc *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		eventID, ok := pathID(c, "id")
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := svc.CancelEvent(ctx, eventID, userID); err != nil {
			abortServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "event cancelled", "id": eventID.Hex()})
	}
}
