package credential

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig() Config {
	return Config{
		Algorithm:         AlgHS256,
		Issuer:            "auth-system-test",
		SecretKey:         "a-sufficiently-long-hmac-signing-key-ok",
		AccessTTLMins:     30,
		RefreshTTLDays:    7,
		Production:        false,
		VolatileStoreURL:  "redis://localhost:6379",
	}
}

func TestIssueAccessAndDecodeRoundTrip(t *testing.T) {
	codec, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	raw, err := codec.IssueAccess(42, "a@example.com", []string{"admin"}, []string{"users:read"}, nil)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, want 42", claims.Subject)
	}
	if claims.Type != TypeAccess {
		t.Errorf("Type = %q, want access", claims.Type)
	}
	if claims.Email != "a@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("Roles = %v", claims.Roles)
	}
	if claims.JTI == "" {
		t.Error("expected a non-empty jti")
	}
}

func TestIssueRefreshHasNoProfileClaims(t *testing.T) {
	codec, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := codec.IssueRefresh(7)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Type != TypeRefresh {
		t.Errorf("Type = %q, want refresh", claims.Type)
	}
	if claims.Email != "" || len(claims.Roles) != 0 {
		t.Error("refresh credential should carry no profile claims")
	}
}

func TestDecodeRejectsWrongIssuer(t *testing.T) {
	cfg := testConfig()
	codec, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	other := cfg
	other.Issuer = "someone-else"
	otherCodec, err := New(other)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := otherCodec.IssueAccess(1, "x@example.com", nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := codec.Decode(raw); err == nil {
		t.Fatal("expected decode to reject a credential from a different issuer")
	}
}

func TestDecodeRejectsExpired(t *testing.T) {
	codec, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "1", "iss": codec.cfg.Issuer, "iat": now.Add(-time.Hour).Unix(),
		"exp": now.Add(-time.Minute).Unix(), "jti": "x", "type": string(TypeAccess),
	}
	raw, err := codec.sign(claims)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := codec.Decode(raw); err != ErrExpired {
		t.Fatalf("Decode(expired) = %v, want ErrExpired", err)
	}
}

func TestJWKSEmptyForHS256(t *testing.T) {
	codec, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	doc := codec.JWKS()
	if len(doc.Keys) != 0 {
		t.Errorf("expected no published keys in HS256 mode, got %d", len(doc.Keys))
	}
}

func TestConfigRejectsHS256InProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Production = true
	if _, err := New(cfg); err == nil || !strings.Contains(err.Error(), "not permitted in production") {
		t.Fatalf("New() = %v, want production rejection", err)
	}
}

func TestConfigRejectsWeakSecret(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = "this-contains-the-word-secret-but-is-long-enough"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected weak-pattern secret to be rejected")
	}
}

func TestConfigRejectsRS256InProductionWithoutKeys(t *testing.T) {
	cfg := Config{
		Algorithm:  AlgRS256,
		Issuer:     "auth-system-test",
		Production: true,
	}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected RS256-in-production without key paths to be rejected")
	}
}
