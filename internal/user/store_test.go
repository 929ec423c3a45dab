package user

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashToken(t *testing.T) {
	a := hashToken("token-a")
	b := hashToken("token-b")

	if a == b {
		t.Fatal("distinct tokens must hash differently")
	}
	if a != hashToken("token-a") {
		t.Fatal("hashing must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(a))
	}
	if a == "token-a" {
		t.Fatal("the plaintext token must never equal its hash")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("opensesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u := &User{PasswordHash: string(hash)}

	if !CheckPassword(u, "opensesame") {
		t.Error("correct password should verify")
	}
	if CheckPassword(u, "wrong") {
		t.Error("wrong password should not verify")
	}
	if CheckPassword(&User{}, "anything") {
		t.Error("empty hash should not verify")
	}
}
