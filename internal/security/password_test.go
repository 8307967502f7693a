package security

import "testing"

func TestHashPassword_CheckPassword_RoundTrips(t *testing.T) {
	digest, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(digest, "hunter2") {
		t.Error("expected matching password to check out")
	}
	if CheckPassword(digest, "wrong") {
		t.Error("expected mismatched password to fail")
	}
}

func TestHashPassword_DistinctDigestsPerCall(t *testing.T) {
	a, _ := HashPassword("hunter2")
	b, _ := HashPassword("hunter2")
	if a == b {
		t.Error("expected bcrypt salting to produce distinct digests for the same password")
	}
}
