package service

import (
	"context"
	"fmt"

	"sharing-service/internal/models"
	"sharing-service/internal/repository"
)

// SessionService resolves bearer tokens into actors when the service runs
// without the gateway in front of it. Sessions live in Redis, written by
// the auth service and only read here.
type SessionService struct {
	jwtService *JWTService
	redisRepo  *repository.RedisRepo
}

func NewSessionService(jwtService *JWTService, redisRepo *repository.RedisRepo) *SessionService {
	return &SessionService{
		jwtService: jwtService,
		redisRepo:  redisRepo,
	}
}

// ValidateToken verifies the token signature and returns its claims.
func (s *SessionService) ValidateToken(token string) (*models.Claims, error) {
	return s.jwtService.VerifyToken(token)
}

// GetSession loads the session record keyed by token. A missing or invalid
// session means the token was revoked upstream.
func (s *SessionService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	session := &models.Session{}
	err := s.redisRepo.GetStructCached(ctx, token, session)
	if err != nil {
		return nil, fmt.Errorf("session not found in cache: %w", err)
	}
	return session, nil
}
