package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-change-api/internal/handler"
	"github.com/noah-isme/timetable-change-api/internal/middleware"
	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-change-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-change-api/pkg/middleware/requestid"
)

// Options carries everything the HTTP surface is built from.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger

	Tokens      middleware.TokenValidator
	RateLimiter *middleware.RateLimiter
	Observer    middleware.HTTPObserver

	Swaps     *handler.SwapRequestHandler
	Leaves    *handler.LeaveRequestHandler
	Requests  *handler.RequestHandler
	Timetable *handler.TimetableHandler
	Metrics   *handler.MetricsHandler
}

// New assembles the gin engine.
func New(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Observer))

	r.GET("/health", opts.Metrics.Health)
	r.GET("/ready", opts.Metrics.Ready)
	r.GET("/metrics", opts.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.JWT(opts.Tokens))
	limited := opts.RateLimiter.Middleware()
	requesters := middleware.RequireRoles(models.RoleFaculty, models.RoleAdmin, models.RoleSuperAdmin)
	admins := middleware.RequireAdmin()

	api.GET("/stats", admins, opts.Metrics.Stats)
	api.GET("/requests/detailed", opts.Requests.ListDetailed)

	swaps := api.Group("/swap-requests")
	swaps.POST("/validate", requesters, limited, opts.Swaps.ValidatePayload)
	swaps.POST("", requesters, opts.Swaps.Create)
	swaps.GET("/detailed", opts.Swaps.ListDetailed)
	swaps.GET("/:id", opts.Swaps.Get)
	swaps.POST("/:id/validate", limited, opts.Swaps.Validate)
	swaps.POST("/:id/submit", opts.Swaps.Submit)
	swaps.POST("/:id/approve", admins, opts.Swaps.Approve)
	swaps.POST("/:id/reject", admins, opts.Swaps.Reject)

	leaves := api.Group("/leave-requests")
	leaves.POST("", requesters, opts.Leaves.Create)
	leaves.GET("", opts.Leaves.List)
	leaves.GET("/:id", opts.Leaves.Get)
	leaves.PUT("/:id", opts.Leaves.Update)
	leaves.POST("/:id/validate", limited, opts.Leaves.Validate)

	tt := api.Group("/timetable")
	tt.GET("/faculty/:facultyId", opts.Timetable.Faculty)
	tt.GET("/section/:batch/:section", opts.Timetable.Section)
	tt.GET("/sessions/:id/suggestions", limited, opts.Timetable.Suggestions)

	return r
}
