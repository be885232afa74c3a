// Package auth handles the bearer token issued by sign-in.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrNoExpiration = errors.New("token missing expiration")
)

const bearerPrefix = "Bearer "

// BearerValue returns the authorization header value for token. Values that
// already carry the scheme are returned unchanged.
func BearerValue(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, bearerPrefix) {
		return token
	}
	return bearerPrefix + token
}

// RawToken strips the bearer scheme from an authorization value.
func RawToken(authorization string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(authorization), bearerPrefix))
}

// Expiry extracts the exp claim without verifying the signature. The
// signing key is the vendor's, so only the claims are of use here.
func Expiry(authorization string) (time.Time, error) {
	raw := RawToken(authorization)
	if raw == "" {
		return time.Time{}, ErrNoToken
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, errors.New("invalid token claims")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiration: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiration
	}
	return exp.Time, nil
}

// NeedsSignIn reports whether a sign-in should happen before the first
// listing. Tokens that cannot be decoded are left to the server to judge.
func NeedsSignIn(authorization string, now time.Time, skew time.Duration) bool {
	exp, err := Expiry(authorization)
	if errors.Is(err, ErrNoToken) {
		return true
	}
	if err != nil {
		return false
	}
	return !now.Add(skew).Before(exp)
}
