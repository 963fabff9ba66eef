package verifygate

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/gitdwsong72/auth-system/internal/credential"
	"github.com/gitdwsong72/auth-system/internal/types"
)

// LocalVerifier fetches the JWKS document once, caches it in-memory with a
// TTL, and falls back to the last-known-good set on a fetch error — the
// pattern the original's auth_sdk/jwks.py uses. Signature, issuer, expiry,
// and type are checked locally; blacklist and active-set membership are
// NOT checked here, since only the issuer (or a sidecar with direct
// volatile-store access) can do that.
type LocalVerifier struct {
	jwksURL    string
	issuer     string
	httpClient *http.Client
	ttl        time.Duration

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewLocalVerifier(jwksURL, issuer string, ttl time.Duration) *LocalVerifier {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LocalVerifier{
		jwksURL:    jwksURL,
		issuer:     issuer,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		ttl:        ttl,
	}
}

func (v *LocalVerifier) keySet(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	v.mu.Lock()
	fresh := v.keys != nil && time.Since(v.fetchedAt) < v.ttl
	cached := v.keys
	v.mu.Unlock()
	if fresh {
		return cached, nil
	}

	fetched, err := v.fetch(ctx)
	if err != nil {
		if cached != nil {
			logx.Errorf("verifygate: jwks refresh failed, serving last-known-good: %v", err)
			return cached, nil
		}
		return nil, err
	}

	v.mu.Lock()
	v.keys = fetched
	v.fetchedAt = time.Now()
	v.mu.Unlock()
	return fetched, nil
}

func (v *LocalVerifier) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch: status %d", resp.StatusCode)
	}

	var doc credential.JWKSDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		pub, err := jwkToRSAPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	return keys, nil
}

func jwkToRSAPublicKey(k credential.JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// Verify validates signature, issuer, expiry, and type locally.
func (v *LocalVerifier) Verify(ctx context.Context, tokenString string) (*types.VerifyResponse, error) {
	keys, err := v.keySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifygate: %w", err)
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("verifygate: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("verifygate: malformed claims")
	}
	if typ, _ := claims["type"].(string); typ != string(credential.TypeAccess) {
		return nil, fmt.Errorf("verifygate: not an access credential")
	}

	resp := &types.VerifyResponse{}
	resp.Subject, _ = claims["sub"].(string)
	resp.Email, _ = claims["email"].(string)
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				resp.Roles = append(resp.Roles, s)
			}
		}
	}
	if perms, ok := claims["permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				resp.Permissions = append(resp.Permissions, s)
			}
		}
	}
	return resp, nil
}
