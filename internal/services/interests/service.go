package interests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	matchessvc "github.com/ivankudzin/swapspace/internal/services/matches"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	ErrValidation        = errors.New("validation error")
	ErrSelfInterest      = errors.New("cannot express interest in own item")
	ErrDuplicateInterest = errors.New("interest already recorded")
	ErrItemNotFound      = errors.New("item not found")
	ErrItemUnavailable   = errors.New("item is not available")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too fast"
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

// DuplicateError is ErrDuplicateInterest carrying the pair state at the
// time of the retry.
type DuplicateError struct {
	Status model.PairStatus
}

func (e DuplicateError) Error() string {
	return ErrDuplicateInterest.Error()
}

func (e DuplicateError) Is(target error) bool {
	return target == ErrDuplicateInterest
}

func IsDuplicate(err error) (*DuplicateError, bool) {
	var dup DuplicateError
	if errors.As(err, &dup) {
		return &dup, true
	}
	return nil, false
}

type Catalog interface {
	GetItem(ctx context.Context, itemID int64) (model.Item, error)
}

type InterestStore interface {
	ListInterestsByUser(ctx context.Context, userID int64, limit int) ([]model.InterestEdge, error)
}

type Detector interface {
	Evaluate(ctx context.Context, tx repo.PairTx, edge model.InterestEdge) (matchessvc.Outcome, error)
	Status(ctx context.Context, a, b int64) (model.PairStatus, error)
}

type RateLimiter interface {
	AllowInterest(ctx context.Context, userID int64) (int64, bool, error)
}

// Notifier receives committed match events. Delivery failures are the
// notifier's to retry; Record never fails because of them.
type Notifier interface {
	Notify(ctx context.Context, event model.MatchEvent)
}

type Dependencies struct {
	Catalog       Catalog
	Pairs         repo.PairStore
	InterestStore InterestStore
	Detector      Detector
	RateLimiter   RateLimiter
	Notifier      Notifier
	Logger        *zap.Logger
}

type Service struct {
	catalog       Catalog
	pairs         repo.PairStore
	interestStore InterestStore
	detector      Detector
	rateLimiter   RateLimiter
	notifier      Notifier
	logger        *zap.Logger
	now           func() time.Time
}

type Result struct {
	Edge   model.InterestEdge
	Status model.PairStatus
	Match  *model.Match
	// Created is true when this call produced the pair's match.
	Created bool
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		catalog:       deps.Catalog,
		pairs:         deps.Pairs,
		interestStore: deps.InterestStore,
		detector:      deps.Detector,
		rateLimiter:   deps.RateLimiter,
		notifier:      deps.Notifier,
		logger:        logger,
		now:           time.Now,
	}
}

// Record stores fromUserID's interest in itemID and evaluates the pair in
// the same unit. Rejected calls leave nothing behind.
func (s *Service) Record(ctx context.Context, fromUserID, itemID int64) (Result, error) {
	if fromUserID <= 0 || itemID <= 0 {
		return Result{}, ErrValidation
	}
	if s.catalog == nil || s.pairs == nil || s.detector == nil {
		return Result{}, fmt.Errorf("interest dependencies are not configured: %w", repo.ErrUnavailable)
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Result{}, ErrItemNotFound
		}
		return Result{}, fmt.Errorf("load item: %w", err)
	}
	if item.OwnerID == fromUserID {
		return Result{}, ErrSelfInterest
	}
	if !item.Active() {
		return Result{}, ErrItemUnavailable
	}

	edge := model.InterestEdge{
		FromUserID: fromUserID,
		ItemID:     item.ID,
		OwnerID:    item.OwnerID,
		CreatedAt:  s.now().UTC(),
	}

	var (
		stored  model.InterestEdge
		outcome matchessvc.Outcome
	)
	if err := s.pairs.WithinPair(ctx, edge.Pair(), func(txCtx context.Context, tx repo.PairTx) error {
		inserted, err := tx.InsertInterest(txCtx, edge)
		if err != nil {
			if errors.Is(err, repo.ErrDuplicateInterest) {
				return ErrDuplicateInterest
			}
			return err
		}
		stored = inserted

		// Only new edges count against the limit. A denial rolls the insert back.
		if err := s.allow(txCtx, fromUserID); err != nil {
			return err
		}

		outcome, err = s.detector.Evaluate(txCtx, tx, inserted)
		return err
	}); err != nil {
		if errors.Is(err, ErrDuplicateInterest) {
			return Result{}, s.duplicate(ctx, edge)
		}
		return Result{}, err
	}

	if outcome.Created && outcome.Event != nil {
		s.logger.Info("match created",
			zap.String("match_id", outcome.Match.ID.String()),
			zap.Int64("user_a", outcome.Match.UserA),
			zap.Int64("user_b", outcome.Match.UserB),
		)
		if s.notifier != nil {
			s.notifier.Notify(ctx, *outcome.Event)
		}
	}

	return Result{
		Edge:    stored,
		Status:  outcome.Status,
		Match:   outcome.Match,
		Created: outcome.Created,
	}, nil
}

func (s *Service) duplicate(ctx context.Context, edge model.InterestEdge) error {
	status, err := s.detector.Status(ctx, edge.FromUserID, edge.OwnerID)
	if err != nil {
		s.logger.Warn("load pair status for duplicate interest failed",
			zap.Int64("from_user_id", edge.FromUserID),
			zap.Int64("item_id", edge.ItemID),
			zap.Error(err),
		)
		return ErrDuplicateInterest
	}
	return DuplicateError{Status: status}
}

func (s *Service) allow(ctx context.Context, userID int64) error {
	if s.rateLimiter == nil {
		return nil
	}
	retryAfter, allowed, err := s.rateLimiter.AllowInterest(ctx, userID)
	if err != nil {
		return fmt.Errorf("apply interest rate limiter: %w", err)
	}
	if !allowed {
		return TooFastError{RetryAfterSec: retryAfter}
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]model.InterestEdge, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.interestStore == nil {
		return nil, fmt.Errorf("interest store is nil: %w", repo.ErrUnavailable)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	return s.interestStore.ListInterestsByUser(ctx, userID, limit)
}
