package http

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
	"github.com/geocoder89/taskhub/internal/service"
	"github.com/geocoder89/taskhub/internal/validation"
)

const apiPrefix = "/api/v1"

// Services builds the auth and task services over a store.
func Services(cfg config.Config, store repo.Store) (*service.AuthService, *service.TaskService) {
	authSvc := service.NewAuthService(
		store,
		security.NewHasher(cfg.BcryptCost),
		auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		cfg.AdminCode,
		cfg.IdentityCacheTTL,
	)
	return authSvc, service.NewTaskService(store)
}

// NewRouter wires every route over store. prom may be nil, which drops the
// metrics middleware and the /metrics endpoint.
func NewRouter(log *slog.Logger, cfg config.Config, store repo.Store, prom *observability.Prom) *gin.Engine {
	switch {
	case cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case cfg.Env == "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	validation.Register()

	authSvc, taskSvc := Services(cfg, store)

	r := gin.New()

	// middleware
	r.Use(middlewares.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))

	// health
	h := handlers.NewHealthHandler(store)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if prom != nil {
		r.GET("/metrics", gin.WrapH(prom.Handler()))
	}

	limiter := middlewares.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	if prom != nil {
		limiter.OnLimited = func(*gin.Context) { prom.RateLimited.Inc() }
	}

	authMW := middlewares.NewAuthMiddleware(authSvc)

	authHandler := handlers.NewAuthHandler(authSvc, cfg.StoreTimeout)
	if prom != nil {
		authHandler.WithEvents(prom)
	}
	usersHandler := handlers.NewUsersHandler(authSvc, cfg.StoreTimeout)
	tasksHandler := handlers.NewTasksHandler(taskSvc, cfg.StoreTimeout)

	api := r.Group(apiPrefix)
	api.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	api.GET("/health", h.Health)

	public := api.Group("/auth")
	public.Use(limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(authMW.RequireAuth())
	protected.Use(limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	protected.GET("/auth/profile", authHandler.Profile)
	protected.PUT("/auth/profile", authHandler.UpdateProfile)
	protected.PUT("/auth/change-password", authHandler.ChangePassword)

	tasks := protected.Group("/tasks")
	tasks.POST("", tasksHandler.Create)
	tasks.GET("", tasksHandler.List)
	tasks.GET("/my", tasksHandler.Mine)
	tasks.GET("/stats", tasksHandler.Stats)
	tasks.GET("/:id", tasksHandler.Get)
	tasks.PUT("/:id", tasksHandler.Update)
	tasks.DELETE("/:id", tasksHandler.Delete)

	admin := protected.Group("")
	admin.Use(authMW.RequireRole(user.RoleAdmin))

	admin.GET("/auth/users", authHandler.ListUsers)
	admin.DELETE("/auth/users/:id", authHandler.DeleteUser)

	admin.GET("/users", usersHandler.List)
	admin.GET("/users/stats", usersHandler.Stats)
	admin.GET("/users/:id", usersHandler.Get)
	admin.PUT("/users/:id", usersHandler.Update)
	admin.DELETE("/users/:id", usersHandler.Delete)

	r.NoRoute(noRoute(cfg.StaticDir))

	log.Info("router ready", "static_dir", cfg.StaticDir, "metrics", prom != nil)

	return r
}

// noRoute serves the web client for non-API paths when staticDir is set and
// falls back to the 404 envelope otherwise.
func noRoute(staticDir string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.Request.URL.Path

		if staticDir != "" && !strings.HasPrefix(path, "/api/") &&
			(ctx.Request.Method == http.MethodGet || ctx.Request.Method == http.MethodHead) {
			if file, ok := staticFile(staticDir, path); ok {
				ctx.File(file)
				return
			}
			ctx.File(filepath.Join(staticDir, "index.html"))
			return
		}

		handlers.RespondNotFound(ctx, "Not Found - "+path)
	}
}

func staticFile(dir, urlPath string) (string, bool) {
	clean := filepath.Clean("/" + urlPath)
	if clean == "/" {
		return "", false
	}

	full := filepath.Join(dir, filepath.FromSlash(clean))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}
