package auth

import "testing"

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected password check to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("calm1mind"); err != nil {
		t.Fatalf("expected valid password, got: %v", err)
	}
	if err := ValidatePassword("aa1"); err == nil {
		t.Fatalf("expected short password to fail")
	}
	if err := ValidatePassword("onlyletters"); err == nil {
		t.Fatalf("expected missing digits to fail")
	}
	if err := ValidatePassword("12345678"); err == nil {
		t.Fatalf("expected missing letters to fail")
	}
}
