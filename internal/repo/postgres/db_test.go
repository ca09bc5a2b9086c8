package postgres

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/migrations"
	"github.com/ivankudzin/swapspace/internal/repo"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{name: "connection exception", err: &pgconn.PgError{Code: "08006"}, unavailable: true},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300"}, unavailable: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, unavailable: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}},
		{name: "canceled", err: context.Canceled},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", tt.err)
			if got := errors.Is(err, repo.ErrUnavailable); got != tt.unavailable {
				t.Fatalf("unavailable: got %v want %v (%v)", got, tt.unavailable, err)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected original error in chain, got %v", err)
			}
			var pgErr *pgconn.PgError
			if _, isPg := tt.err.(*pgconn.PgError); isPg && !errors.As(err, &pgErr) {
				t.Fatalf("expected *pgconn.PgError reachable through %v", err)
			}
		})
	}
}

func TestNilPoolIsUnavailable(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if _, err := store.GetCoordinate(ctx, 1); !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("get coordinate: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.ListActive(ctx, repo.CatalogFilter{}); !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("list active: expected ErrUnavailable, got %v", err)
	}
	err := store.WithinPair(ctx, model.NewPair(1, 2), func(context.Context, repo.PairTx) error {
		t.Fatalf("unit must not run without a pool")
		return nil
	})
	if !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("within pair: expected ErrUnavailable, got %v", err)
	}
	if err := Migrate(ctx, nil); !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("migrate: expected ErrUnavailable, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.Migrations, "*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(files) < 4 {
		t.Fatalf("expected embedded migrations, got %v", files)
	}
}

func TestPairTxRejectsForeignPair(t *testing.T) {
	tx := &pairTx{pair: model.NewPair(1, 2)}
	_, err := tx.InsertInterest(context.Background(), model.InterestEdge{FromUserID: 3, ItemID: 1, OwnerID: 4})
	if err == nil {
		t.Fatalf("expected guard error")
	}
}
