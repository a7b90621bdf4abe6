package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/domain"
	"github.com/worktrail/worktrail/internal/middleware"
	"github.com/worktrail/worktrail/internal/models"
	"github.com/worktrail/worktrail/internal/realtime"
	"github.com/worktrail/worktrail/internal/security"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log            *logrus.Logger
	DB             HealthChecker
	AppliedVersion SchemaVersioner
	SchemaVersion  int
	WorkItems      domain.WorkItemService
	Audit          domain.AuditService
	Activity       domain.ActivityService
	Stats          domain.StatsService
	Principals     middleware.PrincipalLookup
	Dispatcher     *realtime.Dispatcher
	CORSOrigins    []string
	TimelineLen    int
	Version        string
}

// Router-level limits.
const (
	maxBodySize = 2 << 20 // 2 MB
	rateLimit   = 100     // requests per second per IP
	rateBurst   = 200     // token bucket burst size
)

// setupMiddleware configures the middleware shared by every route.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID())
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			MaxAge:           1 * time.Hour,
			AllowCredentials: false,
		}))
	}

	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())
}

// registerRoutes mounts every handler under api.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	var subs SubscriberCounter
	if deps.Dispatcher != nil {
		subs = deps.Dispatcher
	}

	health := NewHealthHandler(deps.DB, deps.AppliedVersion, deps.SchemaVersion, subs, log, deps.Version)
	items := NewWorkItemHandler(deps.WorkItems, log)
	audit := NewAuditHandler(deps.Audit, log)
	activity := NewActivityHandler(deps.Activity, log)
	stats := NewStatsHandler(deps.Stats, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	lockout := security.NewKeyLockout(ctx, log, security.DefaultLockoutPolicy)
	principals := middleware.NewCachedPrincipalLookup(ctx, deps.Principals)

	api.Use(middleware.LockoutMiddleware(lockout))
	api.Use(middleware.AuthMiddleware(principals, log, lockout))

	// Problems.
	api.POST("/problems", items.CreateProblem)
	api.GET("/problems", items.ListProblems)
	api.GET("/problems/:id", items.GetProblem)
	api.DELETE("/problems/:id", items.Delete(models.KindProblem))
	api.POST("/problems/:id/status", items.ChangeProblemStatus)
	api.GET("/problems/:id/actions", items.Actions(models.KindProblem))

	// Site diaries.
	api.POST("/diaries", items.CreateDiary)
	api.GET("/diaries", items.ListDiaries)
	api.GET("/diaries/:id", items.GetDiary)
	api.DELETE("/diaries/:id", items.Delete(models.KindDiary))
	api.POST("/diaries/:id/status", items.ChangeDiaryStatus)
	api.GET("/diaries/:id/actions", items.Actions(models.KindDiary))

	// Acceptance inspections.
	api.POST("/acceptances", items.CreateAcceptance)
	api.GET("/acceptances", items.ListAcceptances)
	api.GET("/acceptances/:id", items.GetAcceptance)
	api.DELETE("/acceptances/:id", items.Delete(models.KindAcceptance))
	api.POST("/acceptances/:id/start", items.StartAcceptance)
	api.POST("/acceptances/:id/decision", items.DecideAcceptance)
	api.GET("/acceptances/:id/approvals", items.ListApprovals)
	api.GET("/acceptances/:id/actions", items.Actions(models.KindAcceptance))

	// Audit log.
	api.POST("/audit", audit.Append)
	api.POST("/audit/batch", audit.AppendBatch)
	api.GET("/audit", audit.Query)

	// Activity timeline.
	api.POST("/activity", activity.Log)
	api.GET("/activity", activity.Query)
	api.GET("/activity/timeline", activity.Timeline)
	api.GET("/activity/entity/:type/:id", activity.EntityHistory)
	api.GET("/activity/actor/:id", activity.ActorHistory)

	// Statistics.
	api.GET("/stats/audit", stats.Audit)
	api.GET("/stats/activity", stats.Activity)

	// Realtime.
	if deps.Dispatcher != nil {
		api.GET("/ws", wsHandler(ctx, log, deps.Dispatcher, wsConfig{
			originPatterns: deps.CORSOrigins,
			timelineLen:    deps.TimelineLen,
			validator:      principals,
		}))
	}
}

// NewRouter creates and configures the gin engine with all middleware and
// routes. ctx bounds the background goroutines the middleware starts.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
