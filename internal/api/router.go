// Package api wires together all HTTP routes for the outstaff backend.
//
// Route grouping:
//   - System probes (/health, /ready, /version) are unauthenticated.
//   - /api/v1/auth/signup and /api/v1/auth/login are public but sit behind a
//     stricter rate limit than the rest of the API.
//   - Everything else requires a bearer token. Routes under /api/v1/orgs/:org_id
//     additionally require an active membership in that organization, and admin
//     routes an admin role on top of it.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/outstaff/outstaff/internal/api/accounts"
	"github.com/outstaff/outstaff/internal/api/certificates"
	"github.com/outstaff/outstaff/internal/api/orgs"
	"github.com/outstaff/outstaff/internal/api/timesheets"
	"github.com/outstaff/outstaff/internal/api/workspace"
	"github.com/outstaff/outstaff/internal/audit"
	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/repositories"
	"github.com/outstaff/outstaff/internal/jobs"
	"github.com/outstaff/outstaff/internal/middleware"
	"github.com/outstaff/outstaff/internal/safego"
	"github.com/outstaff/outstaff/internal/services"
	"github.com/outstaff/outstaff/internal/storage"
	"github.com/outstaff/outstaff/internal/telemetry"
)

// Version is reported by /version. It is overridden at link time.
var Version = "0.1.0"

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	sweeper       *jobs.CertificateExpirySweeper
	rateLimiters  []*middleware.RateLimiter
	redisLimiters []*middleware.RedisRateLimiter
	shipper       *audit.MultiShipper
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.sweeper != nil {
		bg.sweeper.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	for _, rl := range bg.redisLimiters {
		if err := rl.Close(); err != nil {
			slog.Warn("failed to close redis rate limiter", "error", err)
		}
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Warn("failed to close audit shippers", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. store may be nil, in which case
// attachment endpoints answer 503 and the readiness probe skips storage.
func NewRouter(cfg *config.Config, db *sqlx.DB, store storage.Storage) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	activity := services.NewActivityRecorder(auditRepo)

	if cfg.Jobs.CertificateSweeper.Enabled {
		bg.sweeper = jobs.NewCertificateExpirySweeper(repositories.NewCertificateRepository(db), auditRepo, &cfg.Jobs.CertificateSweeper)
		safego.Go("certificate_sweeper", func() { bg.sweeper.Start(context.Background()) })
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.Telemetry.Tracing.Enabled {
		router.Use(otelgin.Middleware(telemetry.ServiceName))
	}
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.SecurityHeadersFromSettings(cfg.Security.TLS)))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, store))
	router.GET("/version", versionHandler())

	generalLimit, authLimit := rateLimiters(cfg, bg)

	accountHandlers := accounts.NewAccountHandlers(cfg, db)
	orgHandlers := orgs.NewOrganizationHandlers(cfg, db, activity)
	invitationHandlers := orgs.NewInvitationHandlers(cfg, db, activity)
	timeHandlers := timesheets.NewTimesheetHandlers(cfg, db, activity)
	certHandlers := certificates.NewCertificateHandlers(cfg, db, store, activity)
	workspaceHandlers := workspace.NewWorkspaceHandlers(cfg, db, activity)

	auditMiddleware := middleware.AuditMiddleware(auditRepo)
	if len(cfg.Audit.Shippers) > 0 {
		shipper, err := audit.NewMultiShipper(cfg.Audit.Shippers)
		if err != nil {
			slog.Error("failed to initialize audit shippers, continuing with database audit only", "error", err)
		} else if shipper.Len() > 0 {
			bg.shipper = shipper
			auditMiddleware = middleware.AuditMiddlewareWithShipper(auditRepo, shipper, &cfg.Audit)
		}
	}

	apiV1 := router.Group("/api/v1")

	// Public authentication endpoints
	authGroup := apiV1.Group("/auth")
	if authLimit != nil {
		authGroup.Use(authLimit)
	}
	authGroup.POST("/signup", accountHandlers.SignupHandler())
	authGroup.POST("/login", accountHandlers.LoginHandler())

	authenticated := apiV1.Group("")
	if generalLimit != nil {
		authenticated.Use(generalLimit)
	}
	authenticated.Use(middleware.AuthMiddleware(userRepo))
	authenticated.Use(auditMiddleware)
	{
		authenticated.POST("/auth/logout", accountHandlers.LogoutHandler())
		authenticated.GET("/auth/me", accountHandlers.MeHandler())
		authenticated.DELETE("/users/me", accountHandlers.DeleteMeHandler())

		authenticated.GET("/orgs", orgHandlers.ListOrganizationsHandler())
		authenticated.POST("/orgs", orgHandlers.CreateOrganizationHandler())
		authenticated.POST("/invitations/:token/accept", invitationHandlers.AcceptInvitationHandler())

		org := authenticated.Group("/orgs/:org_id")
		org.Use(middleware.RequireOrgMembership(orgRepo))
		admin := middleware.RequireOrgAdmin()
		{
			org.GET("", orgHandlers.GetOrganizationHandler())
			org.PUT("", admin, orgHandlers.UpdateOrganizationHandler())
			org.DELETE("", admin, orgHandlers.DeleteOrganizationHandler())
			org.POST("/default", orgHandlers.SetDefaultHandler())
			org.GET("/activity", admin, orgHandlers.ActivityFeedHandler())

			org.GET("/members", orgHandlers.ListMembersHandler())
			org.POST("/members", admin, orgHandlers.AddMemberHandler())
			org.PUT("/members/:membership_id", admin, orgHandlers.UpdateMemberHandler())
			org.DELETE("/members/:membership_id", admin, orgHandlers.RemoveMemberHandler())

			org.GET("/invitations", admin, invitationHandlers.ListInvitationsHandler())
			org.POST("/invitations", admin, invitationHandlers.CreateInvitationHandler())
			org.POST("/invitations/:invitation_id/revoke", admin, invitationHandlers.RevokeInvitationHandler())

			org.GET("/notes", workspaceHandlers.ListNotesHandler())
			org.POST("/notes", workspaceHandlers.CreateNoteHandler())
			org.DELETE("/notes/:note_id", workspaceHandlers.DeleteNoteHandler())
			org.GET("/expenses", workspaceHandlers.ListExpensesHandler())
			org.POST("/expenses", workspaceHandlers.CreateExpenseHandler())
			org.GET("/leaves", workspaceHandlers.ListLeavesHandler())
			org.POST("/leaves", workspaceHandlers.CreateLeaveHandler())
			org.PUT("/leaves/:leave_id/status", admin, workspaceHandlers.UpdateLeaveStatusHandler())
		}

		certs := org.Group("/certificates")
		{
			certs.GET("", certHandlers.ListCertificatesHandler())
			certs.POST("", certHandlers.CreateCertificateHandler())
			certs.GET("/types", certHandlers.ListTypesHandler())
			certs.POST("/types", admin, certHandlers.CreateTypeHandler())
			certs.PUT("/:certificate_id/status", admin, certHandlers.UpdateStatusHandler())
			certs.DELETE("/:certificate_id", certHandlers.DeleteCertificateHandler())
			certs.POST("/:certificate_id/attachment", certHandlers.UploadAttachmentHandler())
			certs.GET("/:certificate_id/attachment", certHandlers.DownloadAttachmentHandler())
		}

		timeGroup := org.Group("/time")
		{
			timeGroup.GET("/dashboard", timeHandlers.DashboardHandler())
			timeGroup.GET("/entries", timeHandlers.ListEntriesHandler())
			timeGroup.POST("/entries", timeHandlers.CreateEntryHandler())
			timeGroup.GET("/entries/:entry_id", timeHandlers.GetEntryHandler())
			timeGroup.PUT("/entries/:entry_id", timeHandlers.UpdateEntryHandler())
			timeGroup.DELETE("/entries/:entry_id", timeHandlers.DeleteEntryHandler())
			timeGroup.POST("/entries/:entry_id/submit", timeHandlers.SubmitEntryHandler())
			timeGroup.POST("/entries/:entry_id/approve", admin, timeHandlers.ApproveEntryHandler())
			timeGroup.POST("/entries/:entry_id/return", admin, timeHandlers.ReturnEntryHandler())
			timeGroup.GET("/entries/:entry_id/approval-log", timeHandlers.ApprovalLogHandler())
			timeGroup.GET("/approvals", admin, timeHandlers.ListApprovalsHandler())

			timeGroup.GET("/projects", timeHandlers.ListProjectsHandler())
			timeGroup.POST("/projects", admin, timeHandlers.CreateProjectHandler())
			timeGroup.GET("/activities", timeHandlers.ListActivitiesHandler())
			timeGroup.POST("/activities", admin, timeHandlers.CreateActivityHandler())

			timeGroup.GET("/policy", admin, timeHandlers.GetPolicyHandler())
			timeGroup.PUT("/policy", admin, timeHandlers.UpdatePolicyHandler())
			timeGroup.GET("/locks", admin, timeHandlers.ListLocksHandler())
			timeGroup.POST("/locks", admin, timeHandlers.CreateLockHandler())
			timeGroup.GET("/holidays", timeHandlers.ListHolidaysHandler())
			timeGroup.POST("/holidays", admin, timeHandlers.CreateHolidayHandler())

			timeGroup.GET("/reports", timeHandlers.ReportHandler())
			timeGroup.GET("/report-presets", timeHandlers.ListPresetsHandler())
			timeGroup.POST("/report-presets", timeHandlers.CreatePresetHandler())
		}
	}

	return router, bg
}

// rateLimiters builds the general and auth rate-limit middleware. Both are nil when
// rate limiting is disabled. A Redis limiter is used when redis_url is set and
// reachable, otherwise each replica keeps its own in-memory buckets.
func rateLimiters(cfg *config.Config, bg *BackgroundServices) (general, authLimit gin.HandlerFunc) {
	rl := cfg.Security.RateLimiting
	if !rl.Enabled {
		return nil, nil
	}
	generalCfg, authCfg := middleware.RateLimitConfigsFromSettings(rl)

	if rl.RedisURL != "" {
		generalRedis, err := middleware.NewRedisRateLimiter(rl.RedisURL, "general", generalCfg)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err = generalRedis.Ping(ctx)
			cancel()
			if err != nil {
				_ = generalRedis.Close()
			}
		}
		if err == nil {
			authRedis, authErr := middleware.NewRedisRateLimiter(rl.RedisURL, "auth", authCfg)
			if authErr == nil {
				bg.redisLimiters = append(bg.redisLimiters, generalRedis, authRedis)
				slog.Info("using redis rate limiter")
				return middleware.RateLimitMiddleware(generalRedis), middleware.RateLimitMiddleware(authRedis)
			}
			_ = generalRedis.Close()
			err = authErr
		}
		slog.Warn("redis rate limiter unavailable, falling back to in-memory limits", "error", err)
	}

	generalMem := middleware.NewRateLimiter(generalCfg)
	authMem := middleware.NewRateLimiter(authCfg)
	bg.rateLimiters = append(bg.rateLimiters, generalMem, authMem)
	return middleware.RateLimitMiddleware(generalMem), middleware.RateLimitMiddleware(authMem)
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and the attachment storage backend.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a readiness gate fails when attachment uploads would error.
func readinessHandler(db *sqlx.DB, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Exists on a known-absent key exercises credentials and connectivity
		// without creating any state.
		if store != nil {
			if _, err := store.Exists(c.Request.Context(), storage.ReadinessKey); err != nil {
				checks["storage"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "storage backend not ready",
				})
				return
			}
			checks["storage"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the server version and API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware logs one structured record per request. The route template is
// logged rather than the raw path so ids do not fragment the output.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = path
		}
		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		// slog emits JSON or text depending on the handler installed by
		// telemetry.SetupLogger from cfg.Logging.Format.
		slog.LogAttrs(
			c.Request.Context(),
			level,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(middleware.RequestIDKey)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
