package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash must not equal the plain password")
	}

	ok, err := h.Compare(hash, "secret123")
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Compare(hash, "wrong")
	if err != nil {
		t.Errorf("mismatch should not be an error, got %v", err)
	}
	if ok {
		t.Error("expected mismatch")
	}
}

func TestPasswordHasher_Cost(t *testing.T) {
	h := NewPasswordHasher(10)
	hash, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != 10 {
		t.Errorf("expected cost 10, got %d", cost)
	}
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	if _, err := h.Compare("not-a-hash", "pw"); err == nil {
		t.Error("expected error for malformed hash")
	}
}
