package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ivankudzin/swapspace/internal/config"
	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
	feedsvc "github.com/ivankudzin/swapspace/internal/services/feed"
	geosvc "github.com/ivankudzin/swapspace/internal/services/geo"
	interestssvc "github.com/ivankudzin/swapspace/internal/services/interests"
	matchessvc "github.com/ivankudzin/swapspace/internal/services/matches"
	"github.com/ivankudzin/swapspace/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	FeedService      *feedsvc.Service
	GeoService       *geosvc.Service
	InterestsService *interestssvc.Service
	MatchService     *matchessvc.Service
	Metrics          prometheus.Gatherer
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	configHandler := handlers.NewConfigHandler(deps.Config.Remote)
	locationHandler := handlers.NewLocationHandler(deps.GeoService)
	feedHandler := handlers.NewFeedHandler(deps.FeedService)
	interestsHandler := handlers.NewInterestsHandler(deps.InterestsService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/config", configHandler.Handle)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Post("/location", locationHandler.Set)
			r.Get("/location", locationHandler.Get)
			r.Get("/feed", feedHandler.Handle)
			r.Post("/interests", interestsHandler.Record)
			r.Get("/interests", interestsHandler.List)
			r.Get("/matches", matchesHandler.Handle)
			r.Get("/matches/{user_id}/status", matchesHandler.Status)
		})
	})
}
