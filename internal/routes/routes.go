package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/vet-agenda/internal/audit"
	"github.com/BruksfildServices01/vet-agenda/internal/config"
	"github.com/BruksfildServices01/vet-agenda/internal/handlers"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/middleware"
	"github.com/BruksfildServices01/vet-agenda/internal/session"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

// Deps are the singletons built by main.
type Deps struct {
	Logger   *logging.Logger
	Registry *workspace.Registry
	Sessions session.Store
	Audit    *audit.Dispatcher
	Gatherer prometheus.Gatherer
	DB       *gorm.DB // nil when auditing is disabled
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps) {

	// ======================================================
	// 🌍 MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// ======================================================
	// 🧩 HANDLERS
	// ======================================================
	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Registry, deps.Logger)
	scheduleHandler := handlers.NewScheduleHandler(deps.Registry)
	appointmentFormHandler := handlers.NewAppointmentFormHandler(deps.Registry, deps.Audit, deps.Logger)
	calendarFormHandler := handlers.NewCalendarFormHandler(deps.Registry, deps.Audit, deps.Logger)

	// ======================================================
	// 🔧 INFRA
	// ======================================================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// ======================================================
	// 🌐 API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		api.GET("/labels", handlers.Labels)

		// ------------------------------
		// 🔐 SESSION
		// ------------------------------
		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware(cfg))
		{
			authed.POST("/session", sessionHandler.Create)
			authed.DELETE("/session", sessionHandler.Delete)
		}

		// ------------------------------
		// 🔐 API PRIVADA
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg), middleware.RequireSession(deps.Sessions))
		{
			secured.GET("/session", sessionHandler.Get)
			secured.PATCH("/session", sessionHandler.Update)

			// ------------------------------
			// SCHEDULE PAGE
			// ------------------------------
			secured.GET("/schedule", scheduleHandler.Get)
			secured.PUT("/schedule", scheduleHandler.Update)
			secured.POST("/schedule/reload", scheduleHandler.Reload)
			secured.POST("/schedule/slot-click", scheduleHandler.SlotClick)
			secured.POST("/schedule/appointment-click", scheduleHandler.AppointmentClick)

			// ------------------------------
			// APPOINTMENT FORMS
			// ------------------------------
			secured.POST("/forms/appointments", appointmentFormHandler.Open)
			secured.GET("/forms/appointments/:id", appointmentFormHandler.Get)
			secured.PATCH("/forms/appointments/:id", appointmentFormHandler.Patch)
			secured.POST("/forms/appointments/:id/submit", appointmentFormHandler.Submit)
			secured.DELETE("/forms/appointments/:id", appointmentFormHandler.Close)

			// ------------------------------
			// SCHEDULE FORMS
			// ------------------------------
			secured.POST("/forms/calendars", calendarFormHandler.Open)
			secured.GET("/forms/calendars/:id", calendarFormHandler.Get)
			secured.PATCH("/forms/calendars/:id", calendarFormHandler.Patch)
			secured.POST("/forms/calendars/:id/submit", calendarFormHandler.Submit)
			secured.DELETE("/forms/calendars/:id", calendarFormHandler.Close)

			if deps.DB != nil {
				auditLogsHandler := handlers.NewAuditLogsHandler(deps.DB)
				secured.GET("/audit-logs", auditLogsHandler.List)
			}
		}
	}
}
