// Package types holds the wire-level request/response shapes named in
// spec.md §6. The HTTP routing surface itself is out of scope; these
// structs are what internal/handler marshals and unmarshals.
package types

import "github.com/gitdwsong72/auth-system/internal/models"

type LoginRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	DeviceInfo *string `json:"device_info,omitempty"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken *string `json:"refresh_token,omitempty"`
}

type VerifyRequest struct {
	Token string `json:"token"`
}

type VerifyResponse struct {
	Subject     string   `json:"sub"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type IntrospectRequest struct {
	Token string `json:"token"`
}

type IntrospectResponse struct {
	Active      bool     `json:"active"`
	UserID      string   `json:"user_id,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	ExpiresAt   int64    `json:"exp,omitempty"`
}

type SessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}
