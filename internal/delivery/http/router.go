package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"seatrotation/internal/delivery/http/controllers"
	"seatrotation/internal/delivery/http/middleware"
)

// Middleware wraps a single route handler.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	Sessions *controllers.SessionController
	Bookings *controllers.BookingController
	Health   *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes.
// requireAuth guards every route except sign-up, login, health and docs;
// rateLimit additionally guards the booking routes.
func NewRouter(c Controllers, requireAuth, rateLimit Middleware) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)
	mux.HandleFunc("GET /auth/me", requireAuth(c.Auth.Me))

	// Sessions
	mux.HandleFunc("GET /sessions", requireAuth(c.Sessions.List))
	mux.HandleFunc("GET /sessions/{sessionID}", requireAuth(c.Sessions.GetByID))
	mux.HandleFunc("GET /sessions/date/{date}", requireAuth(c.Sessions.GetByDate))
	mux.HandleFunc("POST /sessions/generate", requireAuth(c.Sessions.Generate))

	// Bookings
	mux.HandleFunc("POST /bookings/book", requireAuth(rateLimit(c.Bookings.Book)))
	mux.HandleFunc("POST /bookings/cancel", requireAuth(rateLimit(c.Bookings.Cancel)))

	mux.HandleFunc("GET /healthz", c.Health.Healthz)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with request logging and CORS.
func NewHandler(mux *http.ServeMux, logger *slog.Logger, allowedOrigins []string) http.Handler {
	return middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, mux))
}
