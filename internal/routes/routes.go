package routes

import (
	"io"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bus_ticketing/internal/controllers"
	"bus_ticketing/internal/middleware"
)

// Deps is what the router needs from main.
type Deps struct {
	Controller  *controllers.Controller
	Auth        *middleware.Auth
	FareLimiter *middleware.RateLimiter
	// TrustedProxies may set the client address through X-Forwarded-For.
	// Nil trusts none, so rate limits key on the connection address.
	TrustedProxies []string
	// LogWriter receives request logs; nil disables request logging.
	LogWriter io.Writer
}

// SetupRouter builds the gin engine with every route group mounted.
func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		logrus.WithError(err).Warn("Invalid trusted proxy list; trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	if d.LogWriter != nil {
		r.Use(ginlog.SetLogger(
			ginlog.WithWriter(d.LogWriter),
			ginlog.WithSkipPath([]string{"/healthz"}),
		))
	}

	// Stop names are path segments and may contain encoded slashes.
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.GET("/healthz", d.Controller.Health)

	AuthRoutes(r, d)
	PublicRoutes(r, d)
	BookingRoutes(r, d)
	OperatorRoutes(r, d)
	AgentRoutes(r, d)
	AdminRoutes(r, d)
	WebSocketRoutes(r, d)

	return r
}
