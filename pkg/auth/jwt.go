package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
)

type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

// Tokens issued by a node with a slightly fast clock stay usable elsewhere.
const clockSkew = 10 * time.Second

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Username string    `json:"username"`
	Role     string    `json:"role"`
	Kind     tokenKind `json:"token_type"`
}

func (c *sessionClaims) toDomain() (*domain.Claims, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	role := domain.Role(c.Role)
	if !role.IsValid() {
		return nil, ErrTokenInvalid
	}
	return &domain.Claims{AccountID: id, Username: c.Username, Role: role}, nil
}

// JWTManager signs and verifies HS256 session tokens. Access and refresh
// tokens share a key and are told apart by the token_type claim.
type JWTManager struct {
	cfg    config.JWTConfig
	key    []byte
	parser *jwt.Parser
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	m := &JWTManager{cfg: cfg, key: []byte(cfg.Secret), now: time.Now}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m
}

func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	now := m.now()

	access, expiresAt, err := m.sign(claims, kindAccess, now)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, _, err := m.sign(claims, kindRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*domain.Claims, error) {
	return m.verify(token, kindAccess)
}

func (m *JWTManager) ValidateRefreshToken(token string) (*domain.Claims, error) {
	return m.verify(token, kindRefresh)
}

func (m *JWTManager) ttl(kind tokenKind) time.Duration {
	if kind == kindRefresh {
		return m.cfg.RefreshTokenTTL
	}
	return m.cfg.AccessTokenTTL
}

func (m *JWTManager) sign(claims *domain.Claims, kind tokenKind, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl(kind))
	sc := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			Subject:   claims.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username: claims.Username,
		Role:     string(claims.Role),
		Kind:     kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *JWTManager) verify(token string, want tokenKind) (*domain.Claims, error) {
	var sc sessionClaims
	_, err := m.parser.ParseWithClaims(token, &sc, func(*jwt.Token) (any, error) { return m.key, nil })
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	}

	if sc.Kind != want {
		return nil, ErrTokenTypeMismatch
	}
	return sc.toDomain()
}
