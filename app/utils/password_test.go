package utils

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !VerifyPassword("secret", hash) {
		t.Error("VerifyPassword() = false for the hashed password")
	}
	if VerifyPassword("Secret", hash) {
		t.Error("VerifyPassword() = true for a different password")
	}
	if VerifyPassword("", hash) || VerifyPassword("secret", "") {
		t.Error("VerifyPassword() accepted an empty password or hash")
	}
	if NeedsRehash(hash) {
		t.Error("NeedsRehash() = true for a fresh hash")
	}
}

func TestHashPasswordRejectsInvalid(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("HashPassword(\"\") error = %v, expected ErrEmptyPassword", err)
	}
	if _, err := HashPassword(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("HashPassword(73 bytes) error = %v, expected ErrPasswordTooLong", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	if !NeedsRehash(string(weak)) {
		t.Error("NeedsRehash() = false for a hash with a lower cost")
	}
	if !NeedsRehash("plain-text") {
		t.Error("NeedsRehash() = false for a value that is not a bcrypt hash")
	}
}
