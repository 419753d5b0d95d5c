package service

import (
	"fmt"

	"sharing-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService verifies tokens issued by the auth service. The sharing
// service never issues tokens itself.
type JWTService struct {
	secretKey []byte
}

func NewJWTService(jwtSecret string) *JWTService {
	return &JWTService{
		secretKey: []byte(jwtSecret),
	}
}

func (s *JWTService) VerifyToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&models.Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
