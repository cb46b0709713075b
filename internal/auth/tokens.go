package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/daat21/lumiere/internal/domain"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken   = fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	ErrWrongTokenType = fmt.Errorf("%w: unexpected token type", domain.ErrUnauthorized)
	ErrNoSecret       = errors.New("jwt secret is empty")
)

type Claims struct {
	UserID    domain.UserID
	Type      TokenType
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 access and refresh tokens.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokens(secret string, accessTTL, refreshTTL time.Duration) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoSecret
	}
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Tokens{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (t *Tokens) AccessTTL() time.Duration  { return t.accessTTL }
func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

// Pair issues a fresh access and refresh token for the user.
func (t *Tokens) Pair(userID domain.UserID) (access, refresh string, err error) {
	access, err = t.sign(userID, AccessToken, t.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(userID, RefreshToken, t.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *Tokens) Issue(userID domain.UserID, typ TokenType) (string, error) {
	ttl := t.accessTTL
	if typ == RefreshToken {
		ttl = t.refreshTTL
	}
	return t.sign(userID, typ, ttl)
}

func (t *Tokens) sign(userID domain.UserID, typ TokenType, ttl time.Duration) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub":  string(userID),
		"type": string(typ),
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies raw and requires the given token type.
func (t *Tokens) Parse(raw string, want TokenType) (Claims, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return Claims{}, ErrInvalidToken
	}
	typ, _ := claims["type"].(string)
	if TokenType(typ) != want {
		return Claims{}, ErrWrongTokenType
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrInvalidToken
	}
	return Claims{UserID: domain.UserID(sub), Type: want, ExpiresAt: exp.Time}, nil
}

func (t *Tokens) ParseAccess(raw string) (domain.UserID, error) {
	claims, err := t.Parse(raw, AccessToken)
	return claims.UserID, err
}

func (t *Tokens) ParseRefresh(raw string) (domain.UserID, error) {
	claims, err := t.Parse(raw, RefreshToken)
	return claims.UserID, err
}
