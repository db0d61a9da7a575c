package hash

import "testing"

func TestHashAndCheck(t *testing.T) {
	h, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h == "correct horse" {
		t.Fatalf("hash must not equal the plain password")
	}
	if !CheckPasswordHash("correct horse", h) {
		t.Fatalf("expected password to match")
	}
	if CheckPasswordHash("wrong", h) {
		t.Fatalf("expected mismatch for wrong password")
	}
	if CheckPasswordHash("correct horse", "not-a-hash") {
		t.Fatalf("expected mismatch for malformed hash")
	}
}
