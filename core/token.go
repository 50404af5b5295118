package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned for signature mismatch or malformed tokens.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired is returned when the token's expiry has passed.
	ErrTokenExpired = errors.New("token is expired")
)

// TokenCodec issues and parses signed, time-limited bearer tokens. The signing
// key, algorithm, and lifetime come from process-wide configuration loaded once
// at startup; a codec is immutable afterwards and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time // overridable so tests can freeze time
}

// NewTokenCodec validates the configured algorithm and lifetime and builds a
// codec. Only HMAC methods are accepted; asymmetric algorithms would need a
// key pair the configuration does not carry.
func NewTokenCodec(cfg Config) (*TokenCodec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("empty secret key")
	}
	if cfg.AccessTokenExpireMinutes <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not an HMAC method", cfg.Algorithm)
	}

	return &TokenCodec{
		secret: []byte(cfg.SecretKey),
		method: method,
		ttl:    time.Duration(cfg.AccessTokenExpireMinutes) * time.Minute,
		now:    time.Now,
	}, nil
}

// Issue signs a token carrying the supplied claims plus an expiry computed
// from the configured lifetime.
func (tc *TokenCodec) Issue(claims map[string]string) (string, error) {
	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["exp"] = jwt.NewNumericDate(tc.now().Add(tc.ttl))

	signed, err := jwt.NewWithClaims(tc.method, mapClaims).SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the token's string claims.
// Expiry is checked against the codec clock so tests can exercise it.
func (tc *TokenCodec) Parse(tokenString string) (map[string]string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return tc.secret, nil
	},
		jwt.WithValidMethods([]string{tc.method.Alg()}),
		jwt.WithTimeFunc(tc.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	out := make(map[string]string, len(claims))
	for k, v := range claims {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}
