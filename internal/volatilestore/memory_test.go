package volatilestore

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreIncrWithInitialTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	n, err := s.IncrWithInitialTTL(ctx, "k", time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("first incr = %d, %v, want 1, nil", n, err)
	}
	n, err = s.IncrWithInitialTTL(ctx, "k", time.Minute)
	if err != nil || n != 2 {
		t.Fatalf("second incr = %d, %v, want 2, nil", n, err)
	}

	ttl, err := s.TTL(ctx, "k")
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, %v, want (0, 1m]", ttl, err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SetEx(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected key to have expired")
	}
}

func TestMemoryStoreSets(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SetAdd(ctx, "set", "a", "b"); err != nil {
		t.Fatal(err)
	}
	is, err := s.SetIsMember(ctx, "set", "a")
	if err != nil || !is {
		t.Fatalf("SetIsMember(a) = %v, %v, want true, nil", is, err)
	}
	if err := s.SetRemove(ctx, "set", "a"); err != nil {
		t.Fatal(err)
	}
	is, err = s.SetIsMember(ctx, "set", "a")
	if err != nil || is {
		t.Fatalf("SetIsMember(a) after remove = %v, %v, want false, nil", is, err)
	}
	members, err := s.SetMembers(ctx, "set")
	if err != nil || len(members) != 1 || members[0] != "b" {
		t.Fatalf("SetMembers = %v, %v, want [b], nil", members, err)
	}
}

func TestMemoryStoreFailingFailsClosed(t *testing.T) {
	s := NewMemoryStore()
	s.SetFailing(true)
	ctx := context.Background()

	if _, err := s.IncrWithInitialTTL(ctx, "k", time.Minute); err == nil {
		t.Fatal("expected error while store is failing")
	}
	if err := s.Ping(ctx); err == nil {
		t.Fatal("expected Ping to report the outage")
	}
}
