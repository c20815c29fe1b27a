package security

import (
	"testing"
	"time"

	"HoodChat/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

func TestVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	tok, exp, err := Generate(opts, "u-owner")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if time.Until(exp) < 6*24*time.Hour {
		t.Fatalf("expiry too short: %v", exp)
	}
	v, err := NewVerifier(opts)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	sub, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "u-owner" {
		t.Fatalf("sub = %q", sub)
	}
}

func TestVerifyRejects(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	v, _ := NewVerifier(opts)

	other, _, _ := Generate(DefaultOptions([]byte("other-secret")), "u1")
	// TTL <= 0 falls back to the default, so build an expired token by hand.
	expired := signExpired(t, opts.Secret)
	noSub, _ := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(opts.Secret)

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": other,
		"expired":      expired,
		"no subject":   noSub,
	} {
		if _, err := v.Verify(tok); !errors.Is(err, errs.ErrUnauthenticated) {
			t.Errorf("%s: expected unauthenticated, got %v", name, err)
		}
	}
}

func signExpired(t *testing.T, secret []byte) string {
	t.Helper()
	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Options{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewVerifier(Options{Secret: []byte("s"), Alg: "RS256"}); err == nil {
		t.Fatal("expected error for unsupported alg")
	}
}
