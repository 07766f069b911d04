package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"godwillpos/backend/internal/domain"
)

const (
	issuer       = "godwillpos"
	operatorRole = "operator"
	terminalName = "terminal"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	errBadPassword  = errors.New("invalid password")
)

// PasswordVerifier checks the shop's unlock secret.
type PasswordVerifier interface {
	VerifySystemPassword(ctx context.Context, password string) bool
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	verifier PasswordVerifier
	now      func() time.Time
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, verifier PasswordVerifier) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		verifier: verifier,
		now:      time.Now,
	}
}

// Unlock exchanges the system password for a bearer token.
func (a *AuthManager) Unlock(ctx context.Context, req domain.UnlockRequest) (domain.UnlockResponse, error) {
	if len(a.secret) == 0 || !a.verifier.VerifySystemPassword(ctx, req.Password) {
		return domain.UnlockResponse{}, errBadPassword
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(terminalName, operatorRole, expiresAt)
	if err != nil {
		return domain.UnlockResponse{}, err
	}
	return domain.UnlockResponse{
		AccessToken: token,
		Role:        operatorRole,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(subject, role string, expiresAt time.Time) (string, error) {
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
