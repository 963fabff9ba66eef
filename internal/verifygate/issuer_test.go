package verifygate

import (
	"context"
	"testing"
	"time"

	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/registry"
	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

func newTestGate(t *testing.T) (*IssuerGate, *credential.Codec, *registry.Registry) {
	t.Helper()
	codec, err := credential.New(credential.Config{
		Algorithm:        credential.AlgHS256,
		Issuer:           "auth-system-test",
		SecretKey:        "a-sufficiently-long-hmac-signing-key-ok",
		AccessTTLMins:    30,
		RefreshTTLDays:   7,
		VolatileStoreURL: "redis://localhost:6379",
	})
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New(volatilestore.NewMemoryStore())
	return NewIssuerGate(codec, reg, nil), codec, reg
}

func TestIntrospectActiveCredential(t *testing.T) {
	gate, codec, reg := newTestGate(t)
	ctx := context.Background()

	raw, err := codec.IssueAccess(1, "u@example.com", []string{"admin"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterAccess(ctx, 1, claims.JTI, time.Minute); err != nil {
		t.Fatal(err)
	}

	res, err := gate.Introspect(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Active {
		t.Fatal("expected an active, registered credential to introspect as active")
	}
	if res.Email != "u@example.com" {
		t.Errorf("Email = %q", res.Email)
	}
}

func TestIntrospectNotRegisteredIsInactive(t *testing.T) {
	gate, codec, _ := newTestGate(t)

	raw, err := codec.IssueAccess(1, "u@example.com", nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	res, err := gate.Introspect(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Active {
		t.Fatal("a credential never registered as active must introspect inactive")
	}
}

func TestIntrospectBlacklistedIsInactive(t *testing.T) {
	gate, codec, reg := newTestGate(t)
	ctx := context.Background()

	raw, err := codec.IssueAccess(1, "u@example.com", nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := codec.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterAccess(ctx, 1, claims.JTI, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := reg.Blacklist(ctx, claims.JTI, time.Minute); err != nil {
		t.Fatal(err)
	}

	res, err := gate.Introspect(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Active {
		t.Fatal("a blacklisted jti must introspect inactive even if still in the active set")
	}
}

func TestVerifyReturnsErrNotActiveForRefreshToken(t *testing.T) {
	gate, codec, _ := newTestGate(t)
	raw, err := codec.IssueRefresh(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gate.Verify(context.Background(), raw); err != ErrNotActive {
		t.Fatalf("Verify(refresh token) = %v, want ErrNotActive", err)
	}
}
