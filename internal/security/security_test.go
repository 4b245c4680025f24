package security

import (
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatalf("wrong password accepted")
	}
}

func TestUserTokenRoundTrip(t *testing.T) {
	token, err := IssueUserToken("test-secret", "42", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, errParse := ParseUserToken("test-secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.UserID != "42" {
		t.Fatalf("user id = %q, want %q", claims.UserID, "42")
	}
	if claims.ID == "" {
		t.Fatalf("token must carry a jti")
	}

	if _, errWrong := ParseUserToken("other-secret", token); errWrong == nil {
		t.Fatalf("token signed with a different secret must be rejected")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	token, err := IssueAdminToken("test-secret", 7, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, errParse := ParseAdminToken("test-secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.AdminID != 7 {
		t.Fatalf("admin id = %d, want 7", claims.AdminID)
	}

	if _, errCross := ParseUserToken("test-secret", token); errCross == nil {
		t.Fatalf("admin token must not validate as a user token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := IssueUserToken("test-secret", "42", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseUserToken("test-secret", token); errParse == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	if _, err := IssueUserToken("", "42", time.Hour); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
	if _, err := IssueAdminToken("", 7, time.Hour); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
}

func TestGenerateTOTPKey(t *testing.T) {
	key, err := GenerateTOTPKey("admin@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if key.Secret() == "" {
		t.Fatalf("expected non-empty secret")
	}
	if key.Issuer() != "OptiLift" {
		t.Fatalf("issuer = %q, want OptiLift", key.Issuer())
	}
}
