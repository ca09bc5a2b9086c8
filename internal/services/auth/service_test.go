package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/ivankudzin/swapspace/internal/repo/redis"
	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
)

func TestValidateAccessToken(t *testing.T) {
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(jwtManager)

	token, _, err := jwtManager.GenerateAccessToken(1001, "sid-1001", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := svc.ValidateAccessToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != 1001 || claims.SID != "sid-1001" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsForeignSecretAndGarbage(t *testing.T) {
	svc := authsvc.NewService(authsvc.NewJWTManager("test-secret", time.Minute))
	foreign, _, err := authsvc.NewJWTManager("other-secret", time.Minute).GenerateAccessToken(1, "sid", "")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	for _, raw := range []string{foreign, "", "not-a-jwt"} {
		if _, err := svc.ValidateAccessToken(context.Background(), raw); !errors.Is(err, authsvc.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", raw, err)
		}
	}
}

func TestRevokedSessionIsUnauthorized(t *testing.T) {
	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := redrepo.NewSessionRepo(client)
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(jwtManager)
	svc.AttachRevocations(sessions)
	ctx := context.Background()

	token, _, err := jwtManager.GenerateAccessToken(2002, "sid-2002", "user")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := svc.ValidateAccessToken(ctx, token); err != nil {
		t.Fatalf("validate before revoke: %v", err)
	}

	if err := sessions.Revoke(ctx, "sid-2002", 15*time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.ValidateAccessToken(ctx, token); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revoke, got %v", err)
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := authsvc.IdentityFromContext(context.Background()); ok {
		t.Fatalf("anonymous context must not carry an identity")
	}

	ctx := authsvc.WithIdentity(context.Background(), authsvc.IdentityFromClaims(authsvc.AccessClaims{UserID: 5, SID: "s"}))
	identity, ok := authsvc.IdentityFromContext(ctx)
	if !ok || identity.UserID != 5 || identity.SID != "s" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	if _, ok := authsvc.IdentityFromContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{})); ok {
		t.Fatalf("identity without user id must be rejected")
	}
}
