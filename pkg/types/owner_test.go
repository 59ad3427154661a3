package types

import (
	"testing"

	"github.com/google/uuid"
)

func TestAccountOwner(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	owner, err := AccountOwner(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.Kind() != OwnerKindAccount {
		t.Fatalf("expected account kind, got %s", owner.Kind())
	}
	got, ok := owner.AccountID()
	if !ok || got != id {
		t.Fatalf("expected account id %s, got %s (ok=%v)", id, got, ok)
	}
	if _, ok := owner.GuestToken(); ok {
		t.Fatal("account owner must not expose a guest token")
	}

	if _, err := AccountOwner(uuid.Nil); err == nil {
		t.Fatal("nil account id should be rejected")
	}
}

func TestGuestOwner(t *testing.T) {
	t.Parallel()

	owner, err := GuestOwner("tok-abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.Kind() != OwnerKindGuest {
		t.Fatalf("expected guest kind, got %s", owner.Kind())
	}
	token, ok := owner.GuestToken()
	if !ok || token != "tok-abc123" {
		t.Fatalf("expected token round-trip, got %q (ok=%v)", token, ok)
	}
	if _, ok := owner.AccountID(); ok {
		t.Fatal("guest owner must not expose an account id")
	}

	if _, err := GuestOwner("  "); err == nil {
		t.Fatal("blank guest token should be rejected")
	}
}

func TestZeroOwner(t *testing.T) {
	t.Parallel()

	var owner CartOwner
	if !owner.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if owner.String() != "owner:none" {
		t.Fatalf("unexpected string %q", owner.String())
	}
}
