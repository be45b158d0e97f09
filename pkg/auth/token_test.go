package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "rosterhub-identity",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseIdentityToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintIdentityToken(cfg, now, Identity{UserID: "user-1", TeamID: "team-1"})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}

	claims, err := ParseIdentityToken(cfg, token)
	if err != nil {
		t.Fatalf("parse identity token: %v", err)
	}
	identity := claims.Identity()
	if identity.UserID != "user-1" || identity.TeamID != "team-1" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestParseIdentityTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintIdentityToken(cfg, time.Now(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}
	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseIdentityToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseIdentityTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintIdentityToken(cfg, time.Now().Add(-2*time.Hour), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}
	if _, err := ParseIdentityToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseIdentityTokenRejectsOtherAlgorithms(t *testing.T) {
	cfg := testJWTConfig()
	claims := IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseIdentityToken(cfg, token); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestMintIdentityTokenValidation(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintIdentityToken(cfg, time.Now(), Identity{}); err == nil {
		t.Fatal("expected missing user error")
	}
	cfg.Secret = ""
	if _, err := MintIdentityToken(cfg, time.Now(), Identity{UserID: "u"}); err == nil {
		t.Fatal("expected missing secret error")
	}
}
