package registry

import (
	"context"
	"testing"
	"time"

	"github.com/gitdwsong72/auth-system/internal/volatilestore"
)

func TestRegisterAccessAndIsActive(t *testing.T) {
	r := New(volatilestore.NewMemoryStore())
	ctx := context.Background()

	if err := r.RegisterAccess(ctx, 1, "jti-a", time.Minute); err != nil {
		t.Fatal(err)
	}

	active, err := r.IsActive(ctx, 1, "jti-a")
	if err != nil || !active {
		t.Fatalf("IsActive = %v, %v, want true, nil", active, err)
	}
	active, err = r.IsActive(ctx, 1, "jti-b")
	if err != nil || active {
		t.Fatalf("IsActive(unknown) = %v, %v, want false, nil", active, err)
	}
}

func TestBlacklistAndIsBlacklisted(t *testing.T) {
	r := New(volatilestore.NewMemoryStore())
	ctx := context.Background()

	if err := r.Blacklist(ctx, "jti-a", time.Minute); err != nil {
		t.Fatal(err)
	}
	bl, err := r.IsBlacklisted(ctx, "jti-a")
	if err != nil || !bl {
		t.Fatalf("IsBlacklisted = %v, %v, want true, nil", bl, err)
	}
	bl, err = r.IsBlacklisted(ctx, "jti-other")
	if err != nil || bl {
		t.Fatalf("IsBlacklisted(unknown) = %v, %v, want false, nil", bl, err)
	}
}

func TestRevokeAllClearsActiveAndBlacklistsEverything(t *testing.T) {
	r := New(volatilestore.NewMemoryStore())
	ctx := context.Background()

	if err := r.RegisterAccess(ctx, 1, "jti-a", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterAccess(ctx, 1, "jti-b", time.Minute); err != nil {
		t.Fatal(err)
	}

	jtis, err := r.ActiveJTIs(ctx, 1)
	if err != nil || len(jtis) != 2 {
		t.Fatalf("ActiveJTIs = %v, %v, want 2 entries", jtis, err)
	}

	if err := r.BlacklistAll(ctx, jtis, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := r.ClearActive(ctx, 1); err != nil {
		t.Fatal(err)
	}

	for _, jti := range jtis {
		bl, err := r.IsBlacklisted(ctx, jti)
		if err != nil || !bl {
			t.Fatalf("IsBlacklisted(%s) = %v, %v, want true, nil", jti, bl, err)
		}
		active, err := r.IsActive(ctx, 1, jti)
		if err != nil || active {
			t.Fatalf("IsActive(%s) after revoke-all = %v, %v, want false, nil", jti, active, err)
		}
	}
}

func TestRemoveFromActive(t *testing.T) {
	r := New(volatilestore.NewMemoryStore())
	ctx := context.Background()

	if err := r.RegisterAccess(ctx, 1, "jti-a", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := r.RemoveFromActive(ctx, 1, "jti-a"); err != nil {
		t.Fatal(err)
	}
	active, err := r.IsActive(ctx, 1, "jti-a")
	if err != nil || active {
		t.Fatalf("IsActive after RemoveFromActive = %v, %v, want false, nil", active, err)
	}
}
