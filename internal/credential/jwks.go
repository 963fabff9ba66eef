package credential

import (
	"crypto/sha256"
	"encoding/base64"
	"math/big"
)

// JWK is one entry in the published key set document.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// JWKSDocument is the document served at GET /.well-known/jwks.json.
type JWKSDocument struct {
	Keys []JWK `json:"keys"`
}

// JWKS publishes the public verification key. In HS256 (non-production)
// mode there is no asymmetric key to publish and an empty set is returned —
// downstream consumers in that mode are expected to share the secret out of
// band, which is exactly why HS256 is barred from production.
func (c *Codec) JWKS() JWKSDocument {
	if c.cfg.Algorithm != AlgRS256 || c.publicKey == nil {
		return JWKSDocument{Keys: []JWK{}}
	}

	n := base64.RawURLEncoding.EncodeToString(c.publicKey.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(c.publicKey.E)).Bytes())

	return JWKSDocument{
		Keys: []JWK{{
			Kty: "RSA",
			Use: "sig",
			Kid: c.kid,
			Alg: string(AlgRS256),
			N:   n,
			E:   e,
		}},
	}
}

// fingerprint is a stable, non-secret identifier derived from the public
// key, useful for audit logging without exposing key material.
func (c *Codec) fingerprint() string {
	if c.publicKey == nil {
		return ""
	}
	sum := sha256.Sum256(c.publicKey.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
