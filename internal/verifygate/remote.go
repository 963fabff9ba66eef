package verifygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gitdwsong72/auth-system/internal/types"
)

// RemoteVerifier POSTs the credential to the issuer's introspection
// endpoint instead of validating it locally. Used by consumers deployed in
// remote mode. The introspection call has its own timeout and must not
// share a deadline with the caller's request.
type RemoteVerifier struct {
	introspectURL string
	httpClient    *http.Client
}

func NewRemoteVerifier(introspectURL string) *RemoteVerifier {
	return &RemoteVerifier{
		introspectURL: introspectURL,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*types.VerifyResponse, error) {
	body, err := json.Marshal(types.IntrospectRequest{Token: token})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.introspectURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifygate: introspect request: %w", err)
	}
	defer resp.Body.Close()

	var out types.IntrospectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("verifygate: introspect decode: %w", err)
	}
	if !out.Active {
		return nil, fmt.Errorf("verifygate: credential not active")
	}

	return &types.VerifyResponse{
		Subject:     out.UserID,
		Email:       out.Email,
		Roles:       out.Roles,
		Permissions: out.Permissions,
	}, nil
}
