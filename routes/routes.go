package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tleague/handlers"
	"github.com/Dosada05/tleague/middleware"
	"github.com/Dosada05/tleague/services"
)

type Handlers struct {
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Schedule    *handlers.ScheduleHandler
	Match       *handlers.MatchHandler
	Rating      *handlers.RatingHandler
	User        *handlers.UserHandler
	Admin       *handlers.AdminUserHandler
	WebSocket   *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	Roles          middleware.RoleResolver
	Metrics        http.Handler
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Logger)
	require := func(perm services.Permission) func(http.Handler) http.Handler {
		return middleware.RequirePermission(opts.Roles, perm, opts.Logger)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Route("/users", func(r chi.Router) {
			r.Post("/me", h.User.EnsureMe)
			r.Get("/me", h.User.GetMe)
			r.Get("/me/matches", h.Match.HistoryHandler)
			r.Get("/{userID}", h.User.GetUserByID)
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListHandler)
			r.Get("/active", h.Tournament.ListActiveHandler)
			r.With(require(services.PermCreateTournament)).Post("/", h.Tournament.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournament.GetByIDHandler)
				r.Get("/overview", h.Tournament.OverviewHandler)
				r.Get("/participants", h.Participant.List)
				r.Post("/participants", h.Participant.Register)
				r.Get("/standings", h.Tournament.StandingsHandler)
				r.Get("/records", h.Tournament.RecordsHandler)
				r.Get("/rounds", h.Schedule.RoundsHandler)
				r.Get("/matches", h.Schedule.ScheduleHandler)
				r.Get("/rounds/{round}/my-match", h.Schedule.MyMatchHandler)

				// Управление турниром
				r.Group(func(r chi.Router) {
					r.Use(require(services.PermManageOwnTournaments))

					r.Delete("/", h.Tournament.DeleteHandler)
					r.Post("/registration/toggle", h.Tournament.ToggleRegistrationHandler)
					r.Post("/draw", h.Tournament.DrawHandler)
					r.Post("/start", h.Tournament.StartHandler)
					r.Post("/finish", h.Tournament.FinishHandler)
					r.Put("/rounds/{round}/deadline", h.Schedule.SetDeadlineHandler)
					r.Post("/standings/recompute", h.Tournament.RecomputeStandingsHandler)
					r.Post("/records", h.Tournament.CalculateRecordsHandler)
				})
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.Match.GetByIDHandler)
			r.Post("/report", h.Match.ReportHandler)
			r.Post("/confirm", h.Match.ConfirmHandler)
			r.Post("/dispute", h.Match.DisputeHandler)
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Get("/", h.Rating.AllHandler)
			r.Get("/top", h.Rating.TopHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(require(services.PermViewDisputes)).Get("/matches/disputed", h.Match.DisputedHandler)
			r.With(require(services.PermResolveDisputes)).Post("/matches/{matchID}/resolve", h.Match.ResolveHandler)
			r.With(require(services.PermViewModeratorLogs)).Get("/logs", h.Admin.ListLogs)
			r.With(require(services.PermRecalculateRatings)).Post("/ratings/recalculate", h.Rating.RecalculateHandler)
			r.With(require(services.PermRecalculateRatings)).Post("/records/recalculate", h.Rating.RecalculateRecordsHandler)
			r.With(require(services.PermGrantRoles)).Put("/users/{userID}/role", h.Admin.GrantRole)
			r.With(require(services.PermRevokeRoles)).Delete("/users/{userID}/role", h.Admin.RevokeRole)
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
		r.With(authenticate).Get("/users/me", h.WebSocket.ServeUser)
	})
}
