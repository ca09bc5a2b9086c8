package auth

import (
	"context"
	"fmt"
)

// RevocationChecker reports sessions closed before their tokens expired.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, sid string) (bool, error)
}

type Service struct {
	jwt     *JWTManager
	revoked RevocationChecker
}

func NewService(jwtManager *JWTManager) *Service {
	return &Service{jwt: jwtManager}
}

func (s *Service) AttachRevocations(checker RevocationChecker) {
	s.revoked = checker
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	if s.jwt == nil {
		return AccessClaims{}, fmt.Errorf("jwt manager is nil")
	}

	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, err
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.SID)
		if err != nil {
			return AccessClaims{}, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return AccessClaims{}, ErrUnauthorized
		}
	}

	return claims, nil
}
