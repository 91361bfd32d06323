package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"promptdeck/internal/domain"
	"promptdeck/internal/domain/models"
)

// TokenVerifier validates bearer tokens issued by the identity provider.
type TokenVerifier interface {
	// VerifyToken validates a JWT and returns its claims. Returns
	// domain.ErrUnauthorized for any invalid, expired or malformed token.
	VerifyToken(tokenString string) (*models.IdentityClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// JWKSVerifier verifies tokens against the identity provider's JWKS
// endpoint. Keys are cached and refreshed by keyfunc based on HTTP cache
// headers.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

func NewJWKSVerifier(jwksURL string, logger *slog.Logger) (TokenVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)

	return &JWKSVerifier{
		jwks:   jwks,
		logger: logger,
	}, nil
}

// VerifyToken validates a JWT and extracts identity claims.
func (v *JWKSVerifier) VerifyToken(tokenString string) (*models.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.IdentityClaims{}, v.jwks.Keyfunc)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	// Only asymmetric algorithms; guards against algorithm confusion.
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		v.logger.Warn("token uses unexpected algorithm", "algorithm", token.Method.Alg())
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.IdentityClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}
	if claims.Role != "authenticated" {
		v.logger.Debug("token has invalid role", "role", claims.Role, "user_id", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close releases verifier resources. keyfunc v3 manages its own refresh
// lifecycle, so this only logs.
func (v *JWKSVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
