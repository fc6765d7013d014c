package plaid

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	maxWebhookAge = 5 * time.Minute
	// Cached keys are re-checked against Plaid after this long so that
	// rotated-out keys stop verifying.
	keyCacheTTL = 24 * time.Hour
)

var (
	ErrMissingVerification = errors.New("missing Plaid-Verification header")
	ErrInvalidVerification = errors.New("invalid webhook verification")
)

// KeySource resolves webhook signing keys by key ID.
type KeySource interface {
	GetWebhookVerificationKey(ctx context.Context, keyID string) (*JWK, error)
}

type webhookClaims struct {
	RequestBodySHA256 string `json:"request_body_sha256"`
	jwt.RegisteredClaims
}

// WebhookVerifier checks the Plaid-Verification JWT attached to each webhook.
// Keys are cached by kid and re-fetched once a day; a key Plaid reports as
// expired is evicted and rejected.
type WebhookVerifier struct {
	keys  KeySource
	now   func() time.Time
	mu    sync.Mutex
	cache map[string]cachedKey
}

type cachedKey struct {
	key       *ecdsa.PublicKey
	fetchedAt time.Time
}

func NewWebhookVerifier(keys KeySource) *WebhookVerifier {
	return &WebhookVerifier{
		keys:  keys,
		now:   time.Now,
		cache: make(map[string]cachedKey),
	}
}

// Verify validates the signature, freshness and body hash of a webhook.
func (v *WebhookVerifier) Verify(ctx context.Context, token string, body []byte) error {
	if token == "" {
		return ErrMissingVerification
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(token, &webhookClaims{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVerification, err)
	}
	if unverified.Method.Alg() != jwt.SigningMethodES256.Alg() {
		return fmt.Errorf("%w: unexpected alg %q", ErrInvalidVerification, unverified.Method.Alg())
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return fmt.Errorf("%w: missing kid", ErrInvalidVerification)
	}

	key, err := v.publicKey(ctx, kid)
	if err != nil {
		return err
	}

	claims := &webhookClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVerification, err)
	}

	if claims.IssuedAt == nil {
		return fmt.Errorf("%w: missing iat", ErrInvalidVerification)
	}
	if v.now().Sub(claims.IssuedAt.Time) > maxWebhookAge {
		return fmt.Errorf("%w: webhook older than %s", ErrInvalidVerification, maxWebhookAge)
	}

	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(claims.RequestBodySHA256)) != 1 {
		return fmt.Errorf("%w: body hash mismatch", ErrInvalidVerification)
	}

	return nil
}

func (v *WebhookVerifier) publicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	v.mu.Lock()
	entry, ok := v.cache[kid]
	v.mu.Unlock()
	if ok && v.now().Sub(entry.fetchedAt) < keyCacheTTL {
		return entry.key, nil
	}

	jwk, err := v.keys.GetWebhookVerificationKey(ctx, kid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch verification key %s: %w", kid, err)
	}
	if jwk.ExpiredAt != nil {
		v.mu.Lock()
		delete(v.cache, kid)
		v.mu.Unlock()
		return nil, fmt.Errorf("%w: key %s expired", ErrInvalidVerification, kid)
	}

	key, err := jwk.ECDSAPublicKey()
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[kid] = cachedKey{key: key, fetchedAt: v.now()}
	v.mu.Unlock()

	return key, nil
}

// ECDSAPublicKey converts a P-256 JWK into a usable public key.
func (k *JWK) ECDSAPublicKey() (*ecdsa.PublicKey, error) {
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("%w: unsupported key type %s/%s", ErrInvalidVerification, k.Kty, k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("%w: bad x coordinate: %v", ErrInvalidVerification, err)
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("%w: bad y coordinate: %v", ErrInvalidVerification, err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
