package utils

import "testing"

func TestJwtRoundTrip(t *testing.T) {
	token, err := JwtGenerate("jane", "access-1", "refresh-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parsed, err := JwtValidate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token not valid")
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatalf("claims type %T", parsed.Claims)
	}
	if claims.Username != "jane" {
		t.Errorf("username = %s", claims.Username)
	}
	if claims.AccessToken != "access-1" || claims.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %s / %s", claims.AccessToken, claims.RefreshToken)
	}
	if claims.ExpiresAt <= claims.IssuedAt {
		t.Error("expiry not after issue time")
	}
}

func TestJwtValidateRejectsGarbage(t *testing.T) {
	if _, err := JwtValidate("not-a-token"); err == nil {
		t.Fatal("garbage token validated")
	}
}
