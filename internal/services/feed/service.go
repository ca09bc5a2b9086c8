package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	rankingsvc "github.com/ivankudzin/swapspace/internal/services/ranking"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	photoURLTTL     = 5 * time.Minute
)

var ErrValidation = errors.New("validation error")

type Catalog interface {
	ListActive(ctx context.Context, filter repo.CatalogFilter) ([]model.Item, error)
}

type Ranker interface {
	Rank(ctx context.Context, requesterID int64, candidates []model.Item) ([]rankingsvc.Ranked, error)
}

type StatusReader interface {
	Statuses(ctx context.Context, userID int64, peers []int64) (map[int64]model.PairStatus, error)
}

type PhotoURLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxDistanceKM   float64
	PhotoURLTTL     time.Duration
}

type Dependencies struct {
	Catalog  Catalog
	Ranker   Ranker
	Statuses StatusReader
	Logger   *zap.Logger
}

type Service struct {
	catalog   Catalog
	ranker    Ranker
	statuses  StatusReader
	photoSign PhotoURLSigner
	logger    *zap.Logger
	cfg       Config
}

// Query narrows the dashboard. Zero values mean no filter.
type Query struct {
	CategoryID    int64
	MaxDistanceKM float64
	Limit         int
}

type Item struct {
	ItemID      int64
	OwnerID     int64
	Title       string
	CategoryID  int64
	PhotoURL    *string
	DistanceKM  float64
	OwnerCity   string
	CreatedAt   time.Time
	MatchStatus model.PairStatus
}

type Result struct {
	Items []Item
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = defaultPageSize
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = maxPageSize
	}
	if cfg.MaxDistanceKM <= 0 {
		cfg.MaxDistanceKM = math.Pi * 6371.0
	}
	if cfg.PhotoURLTTL <= 0 {
		cfg.PhotoURLTTL = photoURLTTL
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		catalog:  deps.Catalog,
		ranker:   deps.Ranker,
		statuses: deps.Statuses,
		logger:   logger,
		cfg:      cfg,
	}
}

func (s *Service) AttachPhotoSigner(signer PhotoURLSigner) {
	s.photoSign = signer
}

// GetDashboardFeed ranks the active catalog for userID and annotates each
// entry with the pair state against its owner. Ranking errors, including
// ranking.ErrLocationRequired, are returned as they are.
func (s *Service) GetDashboardFeed(ctx context.Context, userID int64, q Query) (Result, error) {
	if userID <= 0 || q.CategoryID < 0 || q.MaxDistanceKM < 0 || q.Limit < 0 ||
		math.IsNaN(q.MaxDistanceKM) || math.IsInf(q.MaxDistanceKM, 0) {
		return Result{}, ErrValidation
	}
	if s.catalog == nil || s.ranker == nil || s.statuses == nil {
		return Result{}, fmt.Errorf("feed dependencies are not configured: %w", repo.ErrUnavailable)
	}

	limit := q.Limit
	if limit == 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	maxDistance := q.MaxDistanceKM
	if maxDistance == 0 || maxDistance > s.cfg.MaxDistanceKM {
		maxDistance = s.cfg.MaxDistanceKM
	}

	candidates, err := s.catalog.ListActive(ctx, repo.CatalogFilter{
		CategoryID:     q.CategoryID,
		ExcludeOwnerID: userID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("list catalog: %w", err)
	}

	ranked, err := s.ranker.Rank(ctx, userID, candidates)
	if err != nil {
		return Result{}, err
	}

	kept := make([]rankingsvc.Ranked, 0, limit)
	for _, entry := range ranked {
		if entry.DistanceKM > maxDistance {
			break
		}
		kept = append(kept, entry)
		if len(kept) == limit {
			break
		}
	}

	peers := make([]int64, 0, len(kept))
	seen := make(map[int64]struct{}, len(kept))
	for _, entry := range kept {
		if _, ok := seen[entry.Item.OwnerID]; ok {
			continue
		}
		seen[entry.Item.OwnerID] = struct{}{}
		peers = append(peers, entry.Item.OwnerID)
	}
	statuses, err := s.statuses.Statuses(ctx, userID, peers)
	if err != nil {
		return Result{}, fmt.Errorf("load match statuses: %w", err)
	}

	items := make([]Item, 0, len(kept))
	for _, entry := range kept {
		status, ok := statuses[entry.Item.OwnerID]
		if !ok {
			status = model.NoInterest()
		}
		items = append(items, Item{
			ItemID:      entry.Item.ID,
			OwnerID:     entry.Item.OwnerID,
			Title:       entry.Item.Title,
			CategoryID:  entry.Item.CategoryID,
			PhotoURL:    s.buildPhotoURL(ctx, entry.Item.PhotoKey),
			DistanceKM:  entry.DistanceKM,
			OwnerCity:   entry.Owner.City,
			CreatedAt:   entry.Item.CreatedAt,
			MatchStatus: status,
		})
	}

	return Result{Items: items}, nil
}

func (s *Service) buildPhotoURL(ctx context.Context, key string) *string {
	key = strings.TrimSpace(key)
	if key == "" || s.photoSign == nil {
		return nil
	}

	url, err := s.photoSign.PresignGet(ctx, key, s.cfg.PhotoURLTTL)
	if err != nil {
		s.logger.Debug("presign item photo failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &url
}
