package app

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/jonboulle/clockwork"
)

func TestRelayTokenIssueAndVerify(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	svc := NewRelayTokenService("test-secret", "turnkeeper", clock)

	tokenString, err := svc.Issue("user123", "session-9")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}

	claims := parseRelayClaims(t, tokenString, "test-secret")
	if got := stringClaim(t, claims, "sub"); got != "user123" {
		t.Fatalf("sub = %s, want user123", got)
	}
	if got := stringClaim(t, claims, "sid"); got != "session-9" {
		t.Fatalf("sid = %s, want session-9", got)
	}
	if got := stringClaim(t, claims, "iss"); got != "turnkeeper" {
		t.Fatalf("iss = %s, want turnkeeper", got)
	}

	origin, err := svc.Verify(tokenString)
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if origin.UserID != "user123" || origin.SessionID != "session-9" {
		t.Fatalf("origin = %+v", origin)
	}
}

func TestRelayTokenVerifyRejects(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	svc := NewRelayTokenService("test-secret", "turnkeeper", clock)
	good, err := svc.Issue("user123", "session-9")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}

	otherSecret, _ := NewRelayTokenService("other-secret", "turnkeeper", clock).Issue("user123", "session-9")
	otherIssuer, _ := NewRelayTokenService("test-secret", "someone-else", clock).Issue("user123", "session-9")

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not-a-token"},
		{"WrongSecret", otherSecret},
		{"WrongIssuer", otherIssuer},
		{"Truncated", good[:len(good)-4]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(tt.token); !errors.Is(err, ErrInvalidRelayToken) {
				t.Fatalf("Verify() error = %v, want %v", err, ErrInvalidRelayToken)
			}
		})
	}
}

func TestRelayTokenExpires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	svc := NewRelayTokenService("test-secret", "turnkeeper", clock)
	token, err := svc.Issue("user123", "session-9")
	if err != nil {
		t.Fatalf("issue token error: %v", err)
	}
	clock.Advance(DefaultRelayTokenTTL + time.Minute)
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidRelayToken) {
		t.Fatalf("Verify() error = %v, want expiry", err)
	}
}

func TestRelayTokenRequiresConfig(t *testing.T) {
	svc := NewRelayTokenService("", "turnkeeper", nil)
	if _, err := svc.Issue("user", "session"); err == nil {
		t.Fatal("expected error for missing relay secret")
	}
	if _, err := NewRelayTokenService("s", "i", nil).Issue("", "session"); err == nil {
		t.Fatal("expected error for empty user")
	}
}

func parseRelayClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	return claims
}

func stringClaim(t *testing.T, claims jwt.MapClaims, name string) string {
	t.Helper()
	value, ok := claims[name]
	if !ok {
		t.Fatalf("missing %s claim", name)
	}
	str, ok := value.(string)
	if !ok {
		t.Fatalf("%s claim is not a string", name)
	}
	return str
}
