package secrets

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
)

// KeyEnvVar is the environment variable holding the process secret key.
const KeyEnvVar = "EINVOICE_SECRET_KEY"

const (
	tokenVersion   = 0x80
	timestampEnd   = 9 // version byte + 8-byte big-endian unix seconds
	ivSize         = 16
	blockSize      = 16
	hmacSize       = 32
	minTokenLength = timestampEnd + ivSize + blockSize + hmacSize
	maxClockSkew   = 60 * time.Second
)

var (
	// ErrConfiguration is returned when the secret key is missing or unusable.
	ErrConfiguration = errors.New("secrets: configuration error")
	// ErrInvalidToken is returned when a token fails verification for any reason.
	ErrInvalidToken = errors.New("secrets: invalid token")
)

// Token is a URL-safe base64 Fernet token.
type Token []byte

func (t Token) String() string {
	return string(t)
}

// ParseToken converts stored token text back into a Token.
func ParseToken(s string) Token {
	return Token(strings.TrimSpace(s))
}

// Option configures a FernetCipher.
type Option func(*FernetCipher)

// WithMaxAge rejects tokens older than d. Zero or negative disables the age check.
func WithMaxAge(d time.Duration) Option {
	return func(c *FernetCipher) {
		c.maxAge = d
	}
}

func withClock(now func() time.Time) Option {
	return func(c *FernetCipher) {
		c.now = now
	}
}

// FernetCipher implements PasswordCipher with Fernet tokens.
// It is immutable after construction and safe for concurrent use.
type FernetCipher struct {
	key    *fernet.Key
	keys   []*fernet.Key
	maxAge time.Duration
	now    func() time.Time
}

var _ PasswordCipher = (*FernetCipher)(nil)

// NewFernetCipher creates a cipher from an encoded 32-byte Fernet key
// (URL-safe base64, standard base64 or hex).
func NewFernetCipher(key string, opts ...Option) (*FernetCipher, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: secret key is required", ErrConfiguration)
	}

	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: secret key must be 32 bytes encoded as url-safe base64: %v", ErrConfiguration, err)
	}

	c := &FernetCipher{
		key:  k,
		keys: []*fernet.Key{k},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NewFromEnv creates a cipher from the key in EINVOICE_SECRET_KEY.
func NewFromEnv(opts ...Option) (*FernetCipher, error) {
	key, ok := os.LookupEnv(KeyEnvVar)
	if !ok || strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrConfiguration, KeyEnvVar)
	}
	return NewFernetCipher(key, opts...)
}

// EncryptPassword seals the UTF-8 bytes of password into a fresh token.
func (c *FernetCipher) EncryptPassword(password string) (Token, error) {
	tok, err := fernet.EncryptAndSign([]byte(password), c.key)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to encrypt: %w", err)
	}
	return Token(tok), nil
}

// DecryptPassword verifies token and returns the password it carries.
func (c *FernetCipher) DecryptPassword(token Token) (string, error) {
	issued, err := TokenTimestamp(token)
	if err != nil {
		return "", err
	}

	// A zero ttl turns off the library's own age and skew checks; age is checked
	// below against c.now and only when WithMaxAge is set.
	msg := fernet.VerifyAndDecrypt(token, 0, c.keys)
	if msg == nil {
		return "", ErrInvalidToken
	}

	if c.maxAge > 0 {
		now := c.now()
		if now.After(issued.Add(c.maxAge)) || issued.After(now.Add(maxClockSkew)) {
			return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
	}

	return string(msg), nil
}

// TokenTimestamp returns the creation time embedded in token after checking its layout.
// It does not verify the token's signature.
func TokenTimestamp(token Token) (time.Time, error) {
	raw, err := base64.URLEncoding.DecodeString(string(token))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed encoding", ErrInvalidToken)
	}
	if len(raw) < minTokenLength || raw[0] != tokenVersion || (len(raw)-minTokenLength)%blockSize != 0 {
		return time.Time{}, fmt.Errorf("%w: malformed token", ErrInvalidToken)
	}
	ts := binary.BigEndian.Uint64(raw[1:timestampEnd])
	return time.Unix(int64(ts), 0), nil
}

// GenerateKey returns a new random key in the URL-safe base64 form NewFernetCipher accepts.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return k.Encode(), nil
}
