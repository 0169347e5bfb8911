// Package auth signs and verifies feed requests with RSA-PSS signatures.
//
// A signed request carries three headers: the key id, a millisecond
// timestamp and a base64 RSA-PSS SHA-256 signature over
// timestamp + method + path.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Header names.
const (
	HeaderKey       = "X-Feed-Key"
	HeaderTimestamp = "X-Feed-Timestamp"
	HeaderSignature = "X-Feed-Signature"
)

// DefaultMaxSkew bounds the difference between request and server clocks.
const DefaultMaxSkew = 5 * time.Minute

// Verification errors.
var (
	ErrMissingHeaders   = errors.New("missing authentication headers")
	ErrBadTimestamp     = errors.New("invalid timestamp")
	ErrClockSkew        = errors.New("timestamp outside allowed window")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Credentials holds the key id and private key for signing requests.
type Credentials struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// LoadCredentials loads credentials from key ID and private key file path.
func LoadCredentials(keyID, privateKeyPath string) (*Credentials, error) {
	if keyID == "" {
		return nil, fmt.Errorf("API key ID is required")
	}
	if privateKeyPath == "" {
		return nil, fmt.Errorf("private key path is required")
	}

	privateKey, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &Credentials{
		KeyID:      keyID,
		PrivateKey: privateKey,
	}, nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	// Try PKCS#8 first (newer format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA private key")
		}
		return rsaKey, nil
	}

	// Fall back to PKCS#1 (older format)
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return rsaKey, nil
}

// LoadPublicKey loads an RSA public key from a PEM file (PKIX or PKCS#1).
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key is not an RSA public key")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return rsaKey, nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}
	return block, nil
}

// SignRequest generates authentication headers for a feed request.
func (c *Credentials) SignRequest(method, path string) (headers map[string]string, err error) {
	return c.signAt(time.Now(), method, path)
}

func (c *Credentials) signAt(now time.Time, method, path string) (map[string]string, error) {
	timestampMs := now.UnixMilli()

	signature, err := c.generateSignature(timestampMs, method, path)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		HeaderKey:       c.KeyID,
		HeaderTimestamp: strconv.FormatInt(timestampMs, 10),
		HeaderSignature: signature,
	}, nil
}

// Apply signs req and sets the authentication headers on it.
func (c *Credentials) Apply(req *http.Request) error {
	headers, err := c.SignRequest(req.Method, req.URL.Path)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return nil
}

// generateSignature creates an RSA-PSS signature for the given request.
// Message format: timestamp_ms + method + path
func (c *Credentials) generateSignature(timestampMs int64, method, path string) (string, error) {
	hashed := digest(timestampMs, method, path)

	signature, err := rsa.SignPSS(
		rand.Reader,
		c.PrivateKey,
		crypto.SHA256,
		hashed[:],
		&rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash},
	)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

func digest(timestampMs int64, method, path string) [32]byte {
	return sha256.Sum256([]byte(strconv.FormatInt(timestampMs, 10) + method + path))
}

// Verifier checks signed requests against a public key.
type Verifier struct {
	key     *rsa.PublicKey
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier creates a verifier. A non-positive maxSkew uses DefaultMaxSkew.
func NewVerifier(key *rsa.PublicKey, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = DefaultMaxSkew
	}
	return &Verifier{key: key, maxSkew: maxSkew, now: time.Now}
}

// Verify checks the authentication headers of r and returns the key id.
func (v *Verifier) Verify(r *http.Request) (string, error) {
	keyID := r.Header.Get(HeaderKey)
	ts := r.Header.Get(HeaderTimestamp)
	sig := r.Header.Get(HeaderSignature)
	if keyID == "" || ts == "" || sig == "" {
		return "", ErrMissingHeaders
	}

	timestampMs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrBadTimestamp
	}
	skew := v.now().Sub(time.UnixMilli(timestampMs))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.maxSkew {
		return "", ErrClockSkew
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidSignature
	}
	hashed := digest(timestampMs, r.Method, r.URL.Path)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash}
	if err := rsa.VerifyPSS(v.key, crypto.SHA256, hashed[:], raw, opts); err != nil {
		return "", ErrInvalidSignature
	}
	return keyID, nil
}
