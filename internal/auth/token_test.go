package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-session-tokens"

func TestTokenService_MintAndVerify(t *testing.T) {
	svc := NewTokenService(testSecret, 7*24*time.Hour)

	token, err := svc.Mint("user-id-1", "streamer_one")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	// JWTはheader.payload.signatureの3パート構成
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("token has %d parts, want 3", len(parts))
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "user-id-1" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "user-id-1")
	}
	if claims.Username != "streamer_one" {
		t.Errorf("claims.Username = %q, want %q", claims.Username, "streamer_one")
	}
}

func TestTokenService_Verify_ExpiresAfterMaxAge(t *testing.T) {
	svc := NewTokenService(testSecret, 7*24*time.Hour)

	token, err := svc.Mint("user-id-1", "streamer_one")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	// 有効期限が約7日後に設定されていること
	wantExpiry := time.Now().Add(7 * 24 * time.Hour)
	gotExpiry := claims.ExpiresAt.Time
	if diff := gotExpiry.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiry = %v, want within 1m of %v", gotExpiry, wantExpiry)
	}
}

func TestTokenService_Verify_ExpiredToken(t *testing.T) {
	// 負の有効期間で即座に期限切れのトークンを発行する
	expired := NewTokenService(testSecret, -time.Hour)

	token, err := expired.Mint("user-id-1", "streamer_one")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	svc := NewTokenService(testSecret, 7*24*time.Hour)
	_, err = svc.Verify(token)
	if err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestTokenService_Verify_WrongSecret(t *testing.T) {
	minter := NewTokenService(testSecret, time.Hour)
	token, err := minter.Mint("user-id-1", "streamer_one")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	verifier := NewTokenService("a-completely-different-secret", time.Hour)
	_, err = verifier.Verify(token)
	if err == nil {
		t.Fatal("expected error for wrong secret, got nil")
	}
}

func TestTokenService_Verify_MalformedToken(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	malformed := []string{
		"",
		"not-a-jwt",
		"a.b",
		"a.b.c.d",
	}

	for _, token := range malformed {
		if _, err := svc.Verify(token); err == nil {
			t.Errorf("Verify(%q) should have returned error", token)
		}
	}
}

func TestTokenService_Verify_RejectsNonHMACSigningMethod(t *testing.T) {
	// alg=noneのトークンは署名方式チェックで拒否される
	claims := SessionClaims{
		UserID:   "user-id-1",
		Username: "streamer_one",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign none token: %v", err)
	}

	svc := NewTokenService(testSecret, time.Hour)
	if _, err := svc.Verify(signed); err == nil {
		t.Fatal("expected error for alg=none token, got nil")
	}
}

func TestTokenService_Verify_RejectsMissingUserID(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	token, err := svc.Mint("", "no-id-user")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected error for token without user ID, got nil")
	}
}
