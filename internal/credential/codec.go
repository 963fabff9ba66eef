// Package credential implements the credential codec (C1): signing,
// verification, and JWKS publication for the four credential types. It does
// not consult the blacklist or the active-access set — that is the
// registry's job (C5); the codec only proves a credential's own signature
// and time fields are valid.
package credential

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired   = errors.New("credential: expired")
	ErrMalformed = errors.New("credential: malformed")
)

const (
	mfaPendingTTL    = 5 * time.Minute
	passwordResetTTL = 1 * time.Hour
)

// Codec issues and verifies bearer credentials. One Codec is built once at
// startup and shared; it holds no per-request state.
type Codec struct {
	cfg        Config
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	kid        string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New validates cfg and loads key material. It returns an error rather than
// panicking so the caller can log and exit cleanly at startup.
func New(cfg Config) (*Codec, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Codec{
		cfg:        cfg,
		accessTTL:  time.Duration(cfg.AccessTTLMins) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		kid:        "authsvc-1",
	}

	if cfg.Algorithm == AlgRS256 && cfg.PrivateKeyPath != "" {
		priv, err := parseRSAPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		c.privateKey = priv
		if cfg.PublicKeyPath != "" {
			pub, err := parseRSAPublicKey(cfg.PublicKeyPath)
			if err != nil {
				return nil, err
			}
			c.publicKey = pub
		} else {
			c.publicKey = &priv.PublicKey
		}
	}

	return c, nil
}

func (c *Codec) signingMethod() jwt.SigningMethod {
	if c.cfg.Algorithm == AlgRS256 {
		return jwt.SigningMethodRS256
	}
	return jwt.SigningMethodHS256
}

func (c *Codec) signingKey() any {
	if c.cfg.Algorithm == AlgRS256 {
		return c.privateKey
	}
	return []byte(c.cfg.SecretKey)
}

func (c *Codec) verifyKey() any {
	if c.cfg.Algorithm == AlgRS256 {
		return c.publicKey
	}
	return []byte(c.cfg.SecretKey)
}

func (c *Codec) newJTI() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// uuid.NewRandom only fails if crypto/rand is broken; a fallback
		// of the zero UUID would violate the "fresh jti" invariant, so the
		// codec treats this as fatal to the single call rather than
		// silently reusing an id.
		return uuid.New().String()
	}
	return id.String()
}

func (c *Codec) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(c.signingMethod(), claims)
	if c.cfg.Algorithm == AlgRS256 {
		token.Header["kid"] = c.kid
	}
	return token.SignedString(c.signingKey())
}

// IssueAccess mints an access credential with fresh jti and the caller's
// profile projection embedded. extra is merged in verbatim; downstream
// validators must tolerate unknown fields.
func (c *Codec) IssueAccess(principalID int64, email string, roles, permissions []string, extra map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         fmt.Sprintf("%d", principalID),
		"iss":         c.cfg.Issuer,
		"iat":         now.Unix(),
		"exp":         now.Add(c.accessTTL).Unix(),
		"jti":         c.newJTI(),
		"type":        string(TypeAccess),
		"email":       email,
		"roles":       roles,
		"permissions": permissions,
	}
	for k, v := range extra {
		claims[k] = v
	}
	return c.sign(claims)
}

// IssueRefresh mints a refresh credential carrying no profile claims.
func (c *Codec) IssueRefresh(principalID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", principalID),
		"iss":  c.cfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(c.refreshTTL).Unix(),
		"jti":  c.newJTI(),
		"type": string(TypeRefresh),
	}
	return c.sign(claims)
}

// IssueMFAPending mints a five-minute credential marking an in-progress
// multi-factor challenge. The factor exchange itself is out of scope.
func (c *Codec) IssueMFAPending(principalID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", principalID),
		"iss":  c.cfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(mfaPendingTTL).Unix(),
		"jti":  c.newJTI(),
		"type": string(TypeMFAPending),
	}
	return c.sign(claims)
}

// IssuePasswordReset mints a one-hour credential for a reset confirmation
// flow owned outside this module.
func (c *Codec) IssuePasswordReset(principalID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", principalID),
		"iss":  c.cfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(passwordResetTTL).Unix(),
		"jti":  c.newJTI(),
		"type": string(TypePasswordReset),
	}
	return c.sign(claims)
}

// Decode validates signature, issuer, and time fields. It does not consult
// the blacklist or active-access set.
func (c *Codec) Decode(raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if t.Method != c.signingMethod() {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.verifyKey(), nil
	}, jwt.WithIssuer(c.cfg.Issuer), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	claims := &Claims{Extra: map[string]any{}}
	claims.Subject, _ = mc["sub"].(string)
	claims.Issuer, _ = mc["iss"].(string)
	claims.JTI, _ = mc["jti"].(string)
	typ, _ := mc["type"].(string)
	claims.Type = TokenType(typ)
	claims.Email, _ = mc["email"].(string)

	if iat, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = int64(iat)
	}
	if exp, ok := mc["exp"].(float64); ok {
		claims.ExpiresAt = int64(exp)
	}
	if roles, ok := mc["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	}
	if perms, ok := mc["permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				claims.Permissions = append(claims.Permissions, s)
			}
		}
	}

	known := map[string]bool{"sub": true, "iss": true, "iat": true, "exp": true, "jti": true, "type": true, "email": true, "roles": true, "permissions": true}
	for k, v := range mc {
		if !known[k] {
			claims.Extra[k] = v
		}
	}

	if claims.JTI == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}
