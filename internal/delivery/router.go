package delivery

import (
	"time"

	"chucheritas/internal/middleware"
	"chucheritas/internal/usecase"
	"chucheritas/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RouterDeps holds everything the HTTP surface needs.
type RouterDeps struct {
	Auth    usecase.AuthUseCase
	Catalog usecase.CatalogUseCase
	Cart    usecase.CartUseCase
	Orders  usecase.OrderUseCase

	Ping         PingFunc
	ProbeTimeout time.Duration
	Cookie       CookieOptions
	Metrics      *metrics.Metrics
	LoginLimiter *middleware.RateLimiter
	Logger       *logrus.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(deps.Logger),
		middleware.Metrics(deps.Metrics),
		middleware.SessionLoader(deps.Auth, deps.Cookie.Name, deps.Logger),
	)

	var limiter gin.HandlerFunc
	if deps.LoginLimiter != nil {
		limiter = deps.LoginLimiter.Handler()
	}

	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	NewStatusHandler(deps.Ping, deps.ProbeTimeout, deps.Metrics, deps.Logger).RegisterRoutes(router)
	NewAuthHandler(deps.Auth, deps.Cookie, deps.Metrics, limiter, deps.Logger).RegisterRoutes(router)
	NewCatalogHandler(deps.Catalog, deps.Orders, deps.Logger).RegisterRoutes(router)
	NewCartHandler(deps.Cart, deps.Metrics, deps.Logger).RegisterRoutes(router)
	NewOrderHandler(deps.Orders, deps.Metrics, deps.Logger).RegisterRoutes(router)
	NewAdminHandler(deps.Catalog, deps.Auth, deps.Logger).RegisterRoutes(router)

	return router
}
