package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"fixit/internal/config"
	"fixit/internal/events"
	"fixit/internal/handlers"
	"fixit/internal/maintenance"
	"fixit/internal/middleware"
	"fixit/internal/models"
	"fixit/internal/repository"
	"fixit/internal/service"
	"fixit/internal/tokencache"
)

// Backend is the storage and delivery wiring chosen at startup.
type Backend struct {
	Requests repository.RequestRepository
	Users    repository.UserRepository
	Vendors  repository.VendorRepository
	DB       handlers.Pinger
	Events   events.Publisher
	Links    tokencache.Index
	Now      func() time.Time
}

func New(log zerolog.Logger, b Backend, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"ETag", "X-Total-Count"},
		AllowCredentials: true,
	}))

	// Health
	r.Get("/healthz", handlers.Health(b.DB))

	// Services + handlers
	maint := service.NewMaintenanceService(b.Requests, b.Users, b.Vendors, b.Events, b.Links, log, service.MaintenanceOptions{
		LinkPolicy:   maintenance.LinkPolicy{MaxExpiryDays: cfg.PublicLinkMaxDays},
		PublicOrigin: cfg.PublicOrigin,
		Now:          b.Now,
	})
	auth := service.NewAuthService(b.Users, cfg.SessionSecret)

	ah := handlers.NewAuthHTTP(auth, b.Users, cfg.Env != "dev")
	rh := handlers.NewRequestHTTP(maint)
	uh := handlers.NewUserHTTP(maint, b.Users)
	ph := handlers.NewPublicHTTP(maint)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		r.Use(middleware.WithAuth(log, cfg.SessionSecret))

		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/register", ah.Register())
			r.Post("/login", ah.Login())
			r.Post("/logout", ah.Logout())
			r.With(middleware.RequireAuth).Get("/me", ah.Me())
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.With(middleware.RequireManager).Get("/api/assignees", uh.Assignees())
			r.With(middleware.RequireSelfOrRoles(models.RolePropertyManager, models.RoleLandlord, models.RoleAdmin)).
				Get("/api/users/{id}", uh.Get())

			r.Route("/api/requests", func(r chi.Router) {
				r.Get("/", rh.List())
				r.Post("/", rh.Create())
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", rh.Get())
					r.Post("/transitions", rh.Transition())
					r.Post("/assignment", rh.Assign())
					r.Post("/public-link", rh.EnablePublicLink())
					r.Delete("/public-link", rh.DisablePublicLink())
					r.Post("/comments", rh.AddComment())
					r.Post("/media", rh.AddMedia())
					r.Delete("/media/{mediaId}", rh.RemoveMedia())
				})
			})
		})
	})

	// Public links: no session, tighter limit.
	r.Route("/public/requests/{token}", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.PublicRateLimitPerMin, time.Minute))
		r.Use(handlers.NoStore)
		r.Get("/", ph.Get())
		r.Post("/comments", ph.AddComment())
		r.Post("/media", ph.AddMedia())
	})

	return r
}
