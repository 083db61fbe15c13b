package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/valorant-arena/docs"
	"github.com/Dosada05/valorant-arena/handlers"
	"github.com/Dosada05/valorant-arena/middleware"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"
)

// Handlers собирает все HTTP обработчики приложения
type Handlers struct {
	Auth         *handlers.AuthHandler
	User         *handlers.UserHandler
	Admin        *handlers.AdminUserHandler
	Dashboard    *handlers.DashboardHandler
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Payment      *handlers.PaymentHandler
	Bracket      *handlers.BracketHandler
	Match        *handlers.MatchHandler
	FreeAgent    *handlers.FreeAgentHandler
	Stats        *handlers.StatsHandler
	Cron         *handlers.CronHandler
	SEO          *handlers.SEOHandler
	WebSocket    *handlers.WebSocketHandler
	Metrics      http.Handler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	// StatsRPS and StatsBurst bound each client IP on /api/stats.
	StatsRPS   float64
	StatsBurst int
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	staffOnly := middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/sitemap.xml", h.SEO.Sitemap)
	router.Get("/robots.txt", h.SEO.Robots)
	router.Handle("/metrics", h.Metrics)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)
	router.Post("/internal/cron/upcoming", h.Cron.Upcoming)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/{provider}/login", h.Auth.OAuthStart)
		r.Get("/{provider}/callback", h.Auth.OAuthCallback)
	})

	router.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", h.User.GetMe)
			r.Patch("/me", h.User.UpdateMe)
			r.Post("/me/avatar", h.User.UploadAvatar)
			r.Get("/me/registrations", h.User.MyRegistrations)
		})
		r.Get("/{userID}", h.User.GetProfile)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", h.Tournament.ListHandler)
		r.Get("/slug/{slug}", h.Tournament.GetBySlugHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", h.Tournament.GetByIDHandler)
			r.Get("/bracket", h.Bracket.Get)
			r.With(middleware.OptionalAuthenticate(opts.JWTSecret)).Get("/registrations", h.Registration.ListByTournament)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/registrations", h.Registration.Register)

				// Только организаторы и админы
				r.Group(func(r chi.Router) {
					r.Use(staffOnly)
					r.Patch("/", h.Tournament.UpdateDetailsHandler)
					r.Delete("/", h.Tournament.DeleteHandler)
					r.Patch("/status", h.Tournament.UpdateStatusHandler)
					r.Post("/logo", h.Tournament.UploadLogoHandler)
					r.Post("/bracket/generate", h.Bracket.Generate)
					r.Post("/bracket/reset", h.Bracket.Reset)
				})
			})
		})

		r.With(authenticate, staffOnly).Post("/", h.Tournament.CreateHandler)
	})

	router.Route("/registrations/{registrationID}", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/withdraw", h.Registration.Withdraw)
		r.Post("/payments", h.Payment.Submit)
		r.Get("/payments", h.Payment.ListByRegistration)

		r.Group(func(r chi.Router) {
			r.Use(staffOnly)
			r.Post("/approve", h.Registration.Approve)
			r.Post("/reject", h.Registration.Reject)
		})
	})

	router.Route("/payments", func(r chi.Router) {
		r.Use(authenticate, staffOnly)
		r.Get("/pending", h.Payment.ListPending)
		r.Post("/{paymentID}/review", h.Payment.Review)
	})

	router.Route("/matches/{matchID}", func(r chi.Router) {
		r.Get("/", h.Match.Get)
		r.With(authenticate).Post("/veto", h.Match.Veto)

		r.Group(func(r chi.Router) {
			r.Use(authenticate, staffOnly)
			r.Patch("/", h.Match.Schedule)
			r.Post("/result", h.Match.ReportResult)
		})
	})

	router.Route("/free-agents", func(r chi.Router) {
		r.Get("/", h.FreeAgent.List)
		r.Get("/{postID}", h.FreeAgent.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", h.FreeAgent.Create)
			r.Patch("/{postID}", h.FreeAgent.Update)
			r.Delete("/{postID}", h.FreeAgent.Delete)
			r.Post("/{postID}/deactivate", h.FreeAgent.Deactivate)
			r.Post("/{postID}/refresh-rank", h.FreeAgent.RefreshRank)
		})
	})

	statsLimiter := middleware.NewIPRateLimiter(rate.Limit(opts.StatsRPS), opts.StatsBurst)
	router.Route("/api/stats", func(r chi.Router) {
		r.Use(middleware.RateLimit(statsLimiter))
		r.Use(chiMiddleware.Timeout(20 * time.Second))
		r.Get("/account/{name}/{tag}", h.Stats.Account)
		r.Get("/mmr/{region}/{name}/{tag}", h.Stats.MMR)
		r.Get("/matches/{region}/{name}/{tag}", h.Stats.Matches)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(authenticate, adminOnly)
		r.Get("/dashboard", h.Dashboard.Stats)
		r.Get("/users", h.Admin.ListUsers)
		r.Patch("/users/{userID}/role", h.Admin.UpdateRole)
	})
}
