package password

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidateStrength(t *testing.T) {
	cases := []struct {
		pw    string
		valid bool
	}{
		{"short1!A", true},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigitsHere!", false},
		{"NoPunctuation1", false},
		{"tiny1!", false},
	}
	for _, c := range cases {
		err := ValidateStrength(c.pw)
		if (err == nil) != c.valid {
			t.Errorf("ValidateStrength(%q) err=%v, want valid=%v", c.pw, err, c.valid)
		}
	}
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	h := New(bcrypt.MinCost)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "Correct1!Horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := h.Verify(ctx, "Correct1!Horse", hash)
	if err != nil || !ok {
		t.Fatalf("Verify(correct) = %v, %v, want true, nil", ok, err)
	}

	ok, err = h.Verify(ctx, "WrongPass1!", hash)
	if err != nil {
		t.Fatalf("Verify(wrong) returned error %v, want (false, nil)", err)
	}
	if ok {
		t.Fatal("Verify(wrong) = true, want false")
	}
}

func TestHashRejectsWeakPassword(t *testing.T) {
	h := New(bcrypt.MinCost)
	if _, err := h.Hash(context.Background(), "weak"); err == nil {
		t.Fatal("expected weak password to be rejected")
	}
}

func TestNeedsRehash(t *testing.T) {
	low := New(bcrypt.MinCost)
	hash, err := low.Hash(context.Background(), "Correct1!Horse")
	if err != nil {
		t.Fatal(err)
	}

	high := New(bcrypt.MinCost + 1)
	if !high.NeedsRehash(hash) {
		t.Fatal("expected hash produced at a lower cost to need rehash")
	}
	if low.NeedsRehash(hash) {
		t.Fatal("hash produced at the hasher's own cost should not need rehash")
	}
}

func TestDummyHashVerifiesFalse(t *testing.T) {
	ok, err := New(bcrypt.MinCost).Verify(context.Background(), "whatever", DummyHash)
	if err != nil {
		t.Fatalf("Verify against DummyHash returned error: %v", err)
	}
	if ok {
		t.Fatal("DummyHash should never match a real plaintext")
	}
}
