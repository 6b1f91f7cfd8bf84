package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arogya-ai/clinic-intake/internal/appointments"
	httpmiddleware "github.com/arogya-ai/clinic-intake/internal/http/middleware"
	"github.com/arogya-ai/clinic-intake/internal/identity"
	"github.com/arogya-ai/clinic-intake/internal/intake"
	"github.com/arogya-ai/clinic-intake/internal/webchat"
	"github.com/arogya-ai/clinic-intake/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AuthHandler         *identity.Handler
	Authenticator       httpmiddleware.Authenticator
	IntakeHandler       *intake.Handler
	AppointmentsHandler *appointments.Handler
	WebchatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	RateLimitPerSecond  float64
	RateLimitBurst      int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			public.Post("/auth/signup", cfg.AuthHandler.SignUp)
			public.Post("/auth/login", cfg.AuthHandler.SignIn)
		}
	})

	// Authenticated routes
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(cfg.Authenticator))

		if cfg.AuthHandler != nil {
			private.Post("/auth/logout", cfg.AuthHandler.SignOut)
			private.Get("/auth/me", cfg.AuthHandler.Me)
		}

		if cfg.IntakeHandler != nil {
			private.Route("/intake", func(r chi.Router) {
				r.Post("/start", cfg.IntakeHandler.Start)
				r.Post("/message", cfg.IntakeHandler.Message)
				r.Post("/reset", cfg.IntakeHandler.Reset)
				r.Get("/session", cfg.IntakeHandler.Session)
				r.Post("/speech-error", cfg.IntakeHandler.SpeechError)
			})
		}

		if cfg.AppointmentsHandler != nil {
			private.Get("/appointments/mine", cfg.AppointmentsHandler.ListMine)
			private.Get("/appointments/{ticketID}", cfg.AppointmentsHandler.Get)

			private.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireRole(identity.RoleAdmin))
				admin.Get("/appointments", cfg.AppointmentsHandler.ListAll)
				admin.Patch("/appointments/{ticketID}/status", cfg.AppointmentsHandler.UpdateStatus)
			})
		}
	})

	// WebSocket channel authenticates inside the handler; the token rides in
	// the query string, not an Authorization header.
	if cfg.WebchatHandler != nil {
		r.Get("/ws/intake", cfg.WebchatHandler.HandleWebSocket)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
