package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/swapspace/internal/config"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	s3infra "github.com/ivankudzin/swapspace/internal/infra/s3"
	"github.com/ivankudzin/swapspace/internal/jobs/cleanup"
	"github.com/ivankudzin/swapspace/internal/jobs/relay"
	"github.com/ivankudzin/swapspace/internal/repo"
	"github.com/ivankudzin/swapspace/internal/repo/memory"
	pgrepo "github.com/ivankudzin/swapspace/internal/repo/postgres"
	redrepo "github.com/ivankudzin/swapspace/internal/repo/redis"
	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
	feedsvc "github.com/ivankudzin/swapspace/internal/services/feed"
	geosvc "github.com/ivankudzin/swapspace/internal/services/geo"
	interestssvc "github.com/ivankudzin/swapspace/internal/services/interests"
	matchessvc "github.com/ivankudzin/swapspace/internal/services/matches"
	rankingsvc "github.com/ivankudzin/swapspace/internal/services/ranking"
	ratesvc "github.com/ivankudzin/swapspace/internal/services/rate"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	cleanupInterval = time.Hour
)

// store is the method set both storage backends provide.
type store interface {
	repo.PairStore
	repo.EventStore
	matchessvc.MatchStore
	SaveCoordinate(ctx context.Context, coordinate model.Coordinate) error
	GetCoordinate(ctx context.Context, userID int64) (model.Coordinate, error)
	GetCoordinates(ctx context.Context, userIDs []int64) (map[int64]model.Coordinate, error)
	GetItem(ctx context.Context, itemID int64) (model.Item, error)
	ListActive(ctx context.Context, filter repo.CatalogFilter) ([]model.Item, error)
	ListInterestsByUser(ctx context.Context, userID int64, limit int) ([]model.InterestEdge, error)
	PurgeDeliveredEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	relay      *relay.Job
	cleanup    *cleanup.Job
	registry   *prometheus.Registry
	httpRouter http.Handler
	background sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	registry := prometheus.NewRegistry()
	httpMetrics := newHTTPMetrics()
	matchMetrics := matchessvc.NewMetrics()
	for _, c := range append(
		[]prometheus.Collector{
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		},
		append(httpMetrics.Collectors(), matchMetrics.Collectors()...)...,
	) {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg, httpMetrics)

	var (
		pool *pgxpool.Pool
		st   store
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case DriverMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		st = memory.NewStore()
	case DriverPostgres, "":
		if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
			log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
		} else {
			pool = p
		}
		if pool != nil && cfg.Storage.MigrateOnStart {
			if err := pgrepo.Migrate(ctx, pool); err != nil {
				log.Warn("postgres migrations failed", zap.Error(err))
			}
		}
		st = pgrepo.NewStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	var (
		redisClient *goredis.Client
		rateLimiter interestssvc.RateLimiter
		publisher   relay.Publisher
	)
	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient = redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		authService.AttachRevocations(redrepo.NewSessionRepo(redisClient))
		rateLimiter = ratesvc.NewLimiter(
			redrepo.NewRateRepo(redisClient),
			cfg.Remote.Limits.InterestRatePerMinute,
			cfg.Remote.Limits.InterestRatePer10Seconds,
		)
		publisher = redrepo.NewMatchPublisher(redisClient, cfg.Relay.Channel)
	} else {
		log.Warn("redis is not configured, rate limits and match notifications are disabled")
	}

	relayJob := relay.New(st, publisher, cfg.Relay.BatchSize, log.Named("relay"))
	cleanupJob := cleanup.New(st, cfg.Relay.Retention, log.Named("cleanup"))

	geoService := geosvc.NewService(cfg.Remote.Cities, st)
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		MatchStore: st,
		Metrics:    matchMetrics,
	})
	interestsService := interestssvc.NewService(interestssvc.Dependencies{
		Catalog:       st,
		Pairs:         st,
		InterestStore: st,
		Detector:      matchesService,
		RateLimiter:   rateLimiter,
		Notifier:      relayJob,
		Logger:        log,
	})
	feedService := feedsvc.NewService(feedsvc.Dependencies{
		Catalog:  st,
		Ranker:   rankingsvc.NewService(st),
		Statuses: matchesService,
		Logger:   log,
	}, feedsvc.Config{
		DefaultPageSize: cfg.Remote.Filters.PageSizeDefault,
		MaxPageSize:     cfg.Remote.Filters.PageSizeMax,
		MaxDistanceKM:   cfg.Remote.Filters.MaxDistanceKM,
		PhotoURLTTL:     cfg.S3.PhotoURLTTL,
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
		Region:    cfg.S3.Region,
	}); err != nil {
		log.Warn("s3 init failed, continuing without photo urls", zap.Error(err))
	} else {
		s3Client = c
		feedService.AttachPhotoSigner(s3infra.NewPhotoSigner(s3Client, cfg.S3.Bucket))
	}

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		FeedService:      feedService,
		GeoService:       geoService,
		InterestsService: interestsService,
		MatchService:     matchesService,
		Metrics:          registry,
		Logger:           log,
		Config:           cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		relay:      relayJob,
		cleanup:    cleanupJob,
		registry:   registry,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartBackground runs the outbox relay and cleanup loops until ctx is done.
// Shutdown waits for them.
func (a *App) StartBackground(ctx context.Context) {
	a.background.Add(2)
	go func() {
		defer a.background.Done()
		a.relay.Loop(ctx, a.cfg.Relay.Interval)
	}()
	go func() {
		defer a.background.Done()
		a.cleanup.Loop(ctx, cleanupInterval)
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	done := make(chan struct{})
	go func() {
		a.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if shutdownErr == nil {
			shutdownErr = ctx.Err()
		}
	}

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
