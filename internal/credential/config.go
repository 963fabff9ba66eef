package credential

import (
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"os"
	"strings"
)

// weakPatterns are substrings that disqualify a MAC secret (checked for
// every HS256 configuration), per spec.md §4.1(c).
var weakPatterns = []string{"dev", "test", "change", "secret", "password", "default"}

// Algorithm distinguishes the two signing families the codec supports.
type Algorithm string

const (
	AlgRS256 Algorithm = "RS256"
	AlgHS256 Algorithm = "HS256"
)

// Config is validated once at construction time. Production guards mirror
// the vendored token library's validateConfig: missing/empty/non-PEM key
// files, short or patterned MAC secrets, and a plaintext volatile-store URL
// all refuse to start.
type Config struct {
	Algorithm      Algorithm
	Issuer         string
	PrivateKeyPath string
	PublicKeyPath  string
	SecretKey      string
	AccessTTLMins  int
	RefreshTTLDays int
	Production     bool
	VolatileStoreURL string
}

func (c Config) validate() error {
	switch c.Algorithm {
	case AlgRS256:
		if !c.Production {
			break
		}
		if c.PrivateKeyPath == "" || c.PublicKeyPath == "" {
			return fmt.Errorf("credential: RS256 in production requires JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH")
		}
		if _, err := loadPEM(c.PrivateKeyPath); err != nil {
			return fmt.Errorf("credential: private key: %w", err)
		}
		if _, err := loadPEM(c.PublicKeyPath); err != nil {
			return fmt.Errorf("credential: public key: %w", err)
		}
	case AlgHS256:
		if c.Production {
			return fmt.Errorf("credential: HS256 (shared secret) is not permitted in production")
		}
		if len(c.SecretKey) < 32 {
			return fmt.Errorf("credential: JWT_SECRET_KEY must be at least 32 bytes")
		}
		lower := strings.ToLower(c.SecretKey)
		for _, p := range weakPatterns {
			if strings.Contains(lower, p) {
				return fmt.Errorf("credential: JWT_SECRET_KEY matches a disallowed weak pattern")
			}
		}
	default:
		return fmt.Errorf("credential: unsupported algorithm %q", c.Algorithm)
	}

	if c.Production {
		if strings.Contains(c.VolatileStoreURL, "localhost") || strings.Contains(c.VolatileStoreURL, "127.0.0.1") {
			return fmt.Errorf("credential: volatile store URL must not point at localhost in production")
		}
		if strings.HasPrefix(c.VolatileStoreURL, "redis://") {
			return fmt.Errorf("credential: volatile store URL must use an encrypted transport (rediss://) in production")
		}
	}
	return nil
}

func loadPEM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s is not PEM-shaped", path)
	}
	return data, nil
}

func parseRSAPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := loadPEM(path)
	if err != nil {
		return nil, err
	}
	return parsePKCS1OrPKCS8Private(data)
}

func parseRSAPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := loadPEM(path)
	if err != nil {
		return nil, err
	}
	return parsePKIXPublic(data)
}
