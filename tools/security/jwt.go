package security

import (
	"fmt"
	"strings"
	"time"

	"HoodChat/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 7 * 24 * time.Hour

// Options controls signing and verification.
type Options struct {
	Secret []byte        // HMAC key
	Alg    string        // HS256/HS384/HS512, HS256 when empty
	TTL    time.Duration // token lifetime, 7 days when zero
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: defaultTTL}
}

// Generate issues a token whose sub claim is userID. Only tests and local
// tooling issue tokens; the gateway verifies tokens minted elsewhere.
func Generate(opts Options, userID string) (token string, expireAt time.Time, err error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	now := time.Now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}

	tok := jwtlib.NewWithClaims(method, claims)
	signed, err := tok.SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verifier resolves a bearer token to the user id it was issued for.
type Verifier struct {
	opts   Options
	parser *jwtlib.Parser
}

func NewVerifier(opts Options) (*Verifier, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return nil, err
	}
	if len(opts.Secret) == 0 {
		return nil, errs.New("jwt secret is empty")
	}
	return &Verifier{
		opts:   opts,
		parser: jwtlib.NewParser(jwtlib.WithValidMethods([]string{method.Alg()}), jwtlib.WithExpirationRequired()),
	}, nil
}

// Verify returns the sub claim of a valid token. Every failure is reported
// as ErrUnauthenticated.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errs.ErrUnauthenticated.WrapMsg("token missing")
	}
	parsed, err := v.parser.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return v.opts.Secret, nil
	})
	if err != nil {
		return "", errs.ErrUnauthenticated.WrapMsg("token rejected", "err", err)
	}
	if !parsed.Valid {
		return "", errs.ErrUnauthenticated.WrapMsg("invalid token")
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errs.ErrUnauthenticated.WrapMsg("token has no subject")
	}
	return sub, nil
}

// BearerToken strips the "Bearer " prefix from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return ""
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
