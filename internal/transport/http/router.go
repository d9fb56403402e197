package http

import (
	"net/http"

	"github.com/candidate-intake-api/internal/application/candidate"
	"github.com/candidate-intake-api/internal/application/registration"
	"github.com/candidate-intake-api/internal/config"
	"github.com/candidate-intake-api/internal/domain"
	"github.com/candidate-intake-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/candidate-intake-api/internal/infrastructure/jwt"
	s3infra "github.com/candidate-intake-api/internal/infrastructure/s3"
	"github.com/candidate-intake-api/internal/infrastructure/smtp"
	"github.com/candidate-intake-api/internal/infrastructure/sns"
	"github.com/candidate-intake-api/internal/pkg/janitor"
	"github.com/candidate-intake-api/internal/transport/http/handler"
	appmiddleware "github.com/candidate-intake-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	CandidateRepo *dynamo.CandidateRepo
	OTPStore      registration.OTPStore
	S3Store       *s3infra.Store
	Mailer        smtp.Mailer
	SMSSender     sns.SMSSender
	JWTProvider   *jwtinfra.Provider
	Janitor       *janitor.Janitor
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the public registration endpoints.
	publicRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	registrationSvc := registration.NewService(registration.ServiceDeps{
		CandidateRepo: deps.CandidateRepo,
		OTPStore:      deps.OTPStore,
		Mailer:        deps.Mailer,
		SMSSender:     deps.SMSSender,
		Janitor:       deps.Janitor,
		OTPTTL:        cfg.OTPTTL,
	})
	candidateSvc := candidate.NewService(deps.CandidateRepo, deps.S3Store)

	healthH := handler.NewHealthHandler()
	registrationH := handler.NewRegistrationHandler(registrationSvc, deps.S3Store)
	candidateH := handler.NewCandidateHandler(candidateSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(publicRL.Limit).Post("/registration/otp/request", registrationH.RequestOTP)
		r.With(publicRL.Limit).Post("/registration/otp/verify", registrationH.VerifyOTP)
		r.With(publicRL.Limit).Post("/registration/complete", registrationH.Complete)

		// ── Admin routes ─────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Get("/candidates", candidateH.List)
			r.Get("/candidates/{id}", candidateH.Get)
			r.Put("/candidates/{id}/status", candidateH.UpdateStatus)
			r.Delete("/candidates/{id}", candidateH.Delete)
		})
	})

	return r
}
