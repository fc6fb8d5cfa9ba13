// Package token signs and verifies the self-contained bearer tokens the
// service issues. Tokens are never persisted; validity is determined
// entirely by the signature and the embedded claims.
package token

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/hirokiuemura2/GDGTeamF1/internal/domain"
)

// Kind discriminates access tokens from refresh tokens so one cannot be
// used in place of the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Default lifetimes applied when Issue is called with a zero ttl.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 20 * 24 * time.Hour
)

// Claims are the facts protected by a token's signature.
type Claims struct {
	Subject string
	Kind    Kind
	Expiry  time.Time
}

type kindClaim struct {
	Kind string `json:"kind,omitempty"`
}

// Codec issues tokens with an RSA private key and verifies them with the
// matching public key. A verify-only Codec (NewVerifier) holds no private
// key, mirroring a resource server that only ever sees the public half.
type Codec struct {
	signer     jose.Signer
	public     *rsa.PublicKey
	alg        jose.SignatureAlgorithm
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option adjusts a Codec at construction time.
type Option func(*Codec)

// WithLifetimes overrides the default access and refresh lifetimes. Zero
// values keep the package defaults.
func WithLifetimes(access, refresh time.Duration) Option {
	return func(c *Codec) {
		if access > 0 {
			c.accessTTL = access
		}
		if refresh > 0 {
			c.refreshTTL = refresh
		}
	}
}

// WithClock replaces the wall clock used for expiry stamping and checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a Codec able to both issue and verify. Keys are PEM encoded;
// algorithm is an RSA JWS algorithm name such as "RS256".
func New(privatePEM, publicPEM, algorithm string, opts ...Option) (*Codec, error) {
	alg, err := signatureAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	private, err := parsePrivateKey(privatePEM)
	if err != nil {
		return nil, err
	}
	public, err := parsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: private},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return newCodec(&Codec{signer: signer, public: public, alg: alg}, opts), nil
}

// NewVerifier builds a verify-only Codec from the public key alone.
func NewVerifier(publicPEM, algorithm string, opts ...Option) (*Codec, error) {
	alg, err := signatureAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	public, err := parsePublicKey(publicPEM)
	if err != nil {
		return nil, err
	}
	return newCodec(&Codec{public: public, alg: alg}, opts), nil
}

func newCodec(c *Codec, opts []Option) *Codec {
	c.accessTTL = DefaultAccessTTL
	c.refreshTTL = DefaultRefreshTTL
	c.now = time.Now
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for subject with the given kind. A zero ttl falls
// back to the codec's configured lifetime for that kind; negative ttls
// are honored as-is, which is useful for producing already-expired tokens
// in tests.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("codec has no private key")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if ttl == 0 {
		switch kind {
		case KindRefresh:
			ttl = c.refreshTTL
		default:
			ttl = c.accessTTL
		}
	}

	expiry := c.now().UTC().Add(ttl)
	raw, err := josejwt.Signed(c.signer).
		Claims(josejwt.Claims{
			Subject: subject,
			Expiry:  josejwt.NewNumericDate(expiry),
		}).
		Claims(kindClaim{Kind: string(kind)}).
		Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Verify checks the signature and required claims of raw and returns the
// embedded claims. Expiry comparison is exact UTC with no leeway:
// exp <= now means expired.
func (c *Codec) Verify(raw string) (Claims, error) {
	parsed, err := josejwt.ParseSigned(raw, []jose.SignatureAlgorithm{c.alg})
	if err != nil {
		return Claims{}, domain.ErrTokenMalformed
	}

	var std josejwt.Claims
	var custom kindClaim
	if err := parsed.Claims(c.public, &std, &custom); err != nil {
		return Claims{}, domain.ErrTokenMalformed
	}

	if std.Subject == "" || std.Expiry == nil || custom.Kind == "" {
		return Claims{}, domain.ErrTokenClaimMissing
	}

	expiry := std.Expiry.Time().UTC()
	if !expiry.After(c.now().UTC()) {
		return Claims{}, domain.ErrTokenExpired
	}

	return Claims{
		Subject: std.Subject,
		Kind:    Kind(custom.Kind),
		Expiry:  expiry,
	}, nil
}

func signatureAlgorithm(name string) (jose.SignatureAlgorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RS256":
		return jose.RS256, nil
	case "RS384":
		return jose.RS384, nil
	case "RS512":
		return jose.RS512, nil
	default:
		return "", fmt.Errorf("unsupported signing algorithm %q", name)
	}
}

func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(normalizePEM(pemData)))
	if block == nil {
		return nil, fmt.Errorf("private key: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}

func parsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(normalizePEM(pemData)))
	if block == nil {
		return nil, fmt.Errorf("public key: no PEM block found")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return key, nil
}

// normalizePEM unescapes newline sequences so keys can be supplied via
// single-line environment variables.
func normalizePEM(data string) string {
	return strings.ReplaceAll(data, `\n`, "\n")
}
