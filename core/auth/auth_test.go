package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", 7, RoleParent, []int64{1, 3}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != 7 || claims.Role != RoleParent {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.HasEntitlement(1) || !claims.HasEntitlement(3) {
		t.Error("entitled events lost in round trip")
	}
	if claims.HasEntitlement(2) {
		t.Error("entitlement invented for event 2")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := GenerateToken("secret", 7, RoleAdmin, nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Error("token signed with a different secret must not parse")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken("secret", 7, RoleTeacher, nil, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Error("expired token must not parse")
	}
}
