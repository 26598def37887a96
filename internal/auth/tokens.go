package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by an admin session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Service issues and validates admin tokens. Token IDs are mirrored in
// Redis so a token can be revoked before it expires.
type Service struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
}

func NewService(secret, expiresIn string, rdb *redis.Client) (*Service, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters")
	}
	ttl, err := time.ParseDuration(expiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid token lifetime %q: %w", expiresIn, err)
	}
	return &Service{secret: []byte(secret), ttl: ttl, rdb: rdb}, nil
}

// Issue creates a signed admin token and registers its ID for revocation.
func (s *Service) Issue(ctx context.Context) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	jti := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "codecollection-registry",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.rdb.Set(ctx, tokenKey(jti), "admin", s.ttl).Err(); err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies a token and confirms it has not been revoked.
func (s *Service) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	exists, err := s.rdb.Exists(ctx, tokenKey(claims.ID)).Result()
	if err != nil {
		// Redis being down must not lock admins out; the signature and
		// expiry were already checked.
		return claims, nil
	}
	if exists == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke invalidates a token by ID before its natural expiry.
func (s *Service) Revoke(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, tokenKey(jti)).Err()
}

func tokenKey(jti string) string {
	return "admintoken:" + jti
}
