package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/projectmanager/backend/internal/models"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Run("generates and validates token for a user", func(t *testing.T) {
		svc := NewTokenService("roundtrip-secret", 1)

		user := &models.User{
			BaseModel: models.BaseModel{ID: uuid.New()},
			Username:  "token-user",
			Roles:     models.RoleList{models.RoleUser, models.RoleAdmin},
		}

		token, err := svc.Generate(user)
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}

		claims, err := svc.Validate(token)
		if err != nil {
			t.Fatalf("expected token validation to succeed, got error: %v", err)
		}

		if claims.UserID != user.ID {
			t.Fatalf("expected claims userID %s, got %s", user.ID, claims.UserID)
		}
		if claims.Username != user.Username {
			t.Fatalf("expected claims username %q, got %q", user.Username, claims.Username)
		}
		if !claims.Roles.Has(models.RoleAdmin) || !claims.Roles.Has(models.RoleUser) {
			t.Fatalf("expected claims roles to carry user and admin, got %v", claims.Roles)
		}
		if claims.Subject != user.ID.String() {
			t.Fatalf("expected subject %q, got %q", user.ID.String(), claims.Subject)
		}
		if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
			t.Fatalf("expected token to have a future expiration, got %v", claims.ExpiresAt)
		}
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		issuer := NewTokenService("issuer-secret", 1)
		verifier := NewTokenService("verifier-secret", 1)

		user := &models.User{
			BaseModel: models.BaseModel{ID: uuid.New()},
			Username:  "cross-secret",
			Roles:     models.RoleList{models.RoleUser},
		}

		token, err := issuer.Generate(user)
		if err != nil {
			t.Fatalf("failed to generate token for test: %v", err)
		}

		if _, err := verifier.Validate(token); err == nil {
			t.Fatal("expected validation with a different secret to fail")
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		svc := NewTokenService("expired-secret", 1)

		expiredClaims := Claims{
			UserID:   uuid.New(),
			Username: "expired",
			Roles:    models.RoleList{models.RoleUser},
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				Subject:   uuid.New().String(),
			},
		}

		expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("expired-secret"))
		if err != nil {
			t.Fatalf("failed to sign expired token for test: %v", err)
		}

		if _, err := svc.Validate(expiredToken); err == nil {
			t.Fatal("expected expired token validation to fail, but it succeeded")
		}
	})

	t.Run("rejects malformed token string", func(t *testing.T) {
		svc := NewTokenService("malformed-secret", 1)

		if _, err := svc.Validate("not-a-jwt"); err == nil {
			t.Fatal("expected malformed token validation to fail, but it succeeded")
		}
	})

	t.Run("rejects token signed with unexpected method", func(t *testing.T) {
		svc := NewTokenService("wrong-method-secret", 1)

		privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate rsa key for test: %v", err)
		}

		rsaToken := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			Subject:   uuid.New().String(),
		})

		signedToken, err := rsaToken.SignedString(privateKey)
		if err != nil {
			t.Fatalf("failed to sign rsa token for test: %v", err)
		}

		_, err = svc.Validate(signedToken)
		if err == nil {
			t.Fatal("expected validation to fail for token with unexpected signing method")
		}
		if !strings.Contains(err.Error(), "unexpected signing method") {
			t.Fatalf("expected signing method error, got: %v", err)
		}
	})

	t.Run("defaults non-positive expiration to a day", func(t *testing.T) {
		svc := NewTokenService("default-expiry-secret", 0)

		user := &models.User{
			BaseModel: models.BaseModel{ID: uuid.New()},
			Username:  "default-expiry",
			Roles:     models.RoleList{models.RoleUser},
		}

		token, err := svc.Generate(user)
		if err != nil {
			t.Fatalf("failed to generate token for test: %v", err)
		}

		claims, err := svc.Validate(token)
		if err != nil {
			t.Fatalf("failed to validate token for test: %v", err)
		}

		remaining := time.Until(claims.ExpiresAt.Time)
		if remaining < 23*time.Hour || remaining > 25*time.Hour {
			t.Fatalf("expected roughly 24h lifetime, got %v", remaining)
		}
	})
}
