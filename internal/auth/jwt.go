package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"checkclass/internal/domain"
)

// Token uses. A refresh token is never accepted where an access token is expected.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims is the JWT payload: the signed-in user plus the registered claims.
type Claims struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
	Use  string      `json:"use"`
	jwt.RegisteredClaims
}

// Principal returns the signed-in user described by the claims.
func (c Claims) Principal() domain.Principal {
	return domain.Principal{UserID: c.Subject, Name: c.Name, Role: c.Role}
}

// Issue signs an access and a refresh token for p, both issued at now.
func Issue(p domain.Principal, issuer, key string, accessTTL, refreshTTL time.Duration, now time.Time) (TokenPair, error) {
	pair := TokenPair{AccessExp: now.Add(accessTTL), RefreshExp: now.Add(refreshTTL)}
	var err error
	if pair.AccessToken, err = sign(p, useAccess, issuer, key, now, pair.AccessExp); err != nil {
		return TokenPair{}, err
	}
	if pair.RefreshToken, err = sign(p, useRefresh, issuer, key, now, pair.RefreshExp); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func sign(p domain.Principal, use, issuer, key string, now, exp time.Time) (string, error) {
	claims := Claims{
		Name: p.Name,
		Role: p.Role,
		Use:  use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// Parse validates an access token signed with key. A non-empty issuer must match.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...); err != nil {
		return Claims{}, err
	}
	switch {
	case claims.Use != useAccess:
		return Claims{}, errors.New("not an access token")
	case claims.Subject == "" || !claims.Role.Valid():
		return Claims{}, errors.New("token carries no user")
	}
	return claims, nil
}
