package routes

import (
	"github.com/gin-gonic/gin"
	config "github.com/phillip/club-manager-go/config"
	controllers "github.com/phillip/club-manager-go/controllers"
	middleware "github.com/phillip/club-manager-go/middleware"
	services "github.com/phillip/club-manager-go/services"
	store "github.com/phillip/club-manager-go/store"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	st := store.NewMongoStore(cfg.MongoClient, cfg.DBName)
	membership := services.NewMembershipService(st)
	events := services.NewEventService(st)
	attendance := services.NewAttendanceService(st)

	// public
	r.POST("/auth/register", middleware.RateLimitAuth(), controllers.Register(cfg))
	r.POST("/auth/login", middleware.RateLimitAuth(), controllers.Login(cfg))
	r.POST("/auth/refresh", middleware.RateLimitAuth(), controllers.RefreshToken(cfg))

	// protected
	auth := middleware.AuthMiddleware(cfg)

	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("/me", controllers.GetMe(cfg))
		users.PATCH("/me", controllers.UpdateMe(cfg))
	}

	clubs := r.Group("/clubs")
	clubs.Use(auth)
	{
		clubs.POST("", controllers.CreateClub(membership))
		clubs.GET("", controllers.ListClubs(cfg))
		clubs.GET("/:id", controllers.GetClub(membership))
		clubs.PATCH("/:id", controllers.UpdateClub(membership))
		clubs.DELETE("/:id", controllers.ArchiveClub(membership))

		// membership
		clubs.POST("/:id/join", controllers.JoinClub(cfg, membership))
		clubs.POST("/:id/leave", controllers.LeaveClub(membership))
		clubs.GET("/:id/members", controllers.ListMembers(membership))
		clubs.DELETE("/:id/members/:memberId", controllers.RemoveMember(cfg, membership))
		clubs.PATCH("/:id/members/:memberId/role", controllers.UpdateMemberRole(membership))
		clubs.GET("/:id/stats", controllers.GetClubStats(membership))
		clubs.GET("/:id/permissions", controllers.GetPermissions(membership))
		clubs.POST("/:id/reconcile", controllers.ReconcileClub(membership))

		// events
		clubs.POST("/:id/events", controllers.CreateEvent(events))
		clubs.GET("/:id/events", controllers.ListClubEvents(events))
	}

	eventsGroup := r.Group("/events")
	eventsGroup.Use(auth)
	{
		eventsGroup.GET("/:id", controllers.GetEvent(events))
		eventsGroup.PATCH("/:id", controllers.UpdateEvent(events))
		eventsGroup.POST("/:id/cancel", controllers.CancelEvent(events))

		// attendance
		eventsGroup.PUT("/:id/rsvp", controllers.SetRSVP(attendance))
		eventsGroup.GET("/:id/rsvp", controllers.GetRSVPSummary(attendance))
		eventsGroup.GET("/:id/rsvps", controllers.ListRSVPs(attendance))
	}
}
