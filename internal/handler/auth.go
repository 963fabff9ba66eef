package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gitdwsong72/auth-system/internal/admission"
	"github.com/gitdwsong72/auth-system/internal/apperror"
	"github.com/gitdwsong72/auth-system/internal/session"
	"github.com/gitdwsong72/auth-system/internal/svc"
	"github.com/gitdwsong72/auth-system/internal/types"
)

func LoginHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.New(apperror.CodeInvalidToken, http.StatusBadRequest, "malformed request body"))
			return
		}

		info := admission.GetClientInfo(r)
		pair, err := ctx.Login.Login(r.Context(), req.Email, req.Password, req.DeviceInfo, info.IP, info.UserAgent)
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, types.TokenPairResponse{
			AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
			TokenType: "bearer", ExpiresIn: pair.ExpiresIn,
		})
	}
}

func RefreshHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.New(apperror.CodeInvalidRefresh, http.StatusBadRequest, "malformed request body"))
			return
		}
		pair, err := ctx.Refresh.Rotate(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, types.TokenPairResponse{
			AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken,
			TokenType: "bearer", ExpiresIn: pair.ExpiresIn,
		})
	}
}

func LogoutHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := bearerToken(r)
		if !ok {
			writeError(w, apperror.ErrMissingAuth)
			return
		}
		var req types.LogoutRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if err := ctx.Session.Logout(r.Context(), accessToken, req.RefreshToken); err != nil {
			writeError(w, err)
			return
		}
		writeNoContent(w)
	}
}

func VerifyHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.ErrInvalidToken)
			return
		}
		resp, err := ctx.IssuerGate.Verify(r.Context(), req.Token)
		if err != nil {
			writeError(w, apperror.ErrTokenRevoked)
			return
		}
		writeOK(w, resp)
	}
}

func IntrospectHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.IntrospectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperror.ErrInvalidToken)
			return
		}
		resp, err := ctx.IssuerGate.Introspect(r.Context(), req.Token)
		if err != nil {
			writeError(w, apperror.ErrInternal.Wrap(err))
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func SessionsGetHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := bearerToken(r)
		if !ok {
			writeError(w, apperror.ErrMissingAuth)
			return
		}
		claims, err := ctx.Codec.Decode(accessToken)
		if err != nil {
			writeError(w, apperror.ErrInvalidToken)
			return
		}
		principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeError(w, apperror.ErrInvalidToken)
			return
		}
		records, err := ctx.RefreshRepo.ListActiveSessions(r.Context(), principalID)
		if err != nil {
			writeError(w, apperror.ErrInternal.Wrap(err))
			return
		}
		writeOK(w, types.SessionsResponse{Sessions: session.Sessions(records, "")})
	}
}

func SessionsDeleteHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := bearerToken(r)
		if !ok {
			writeError(w, apperror.ErrMissingAuth)
			return
		}
		claims, err := ctx.Codec.Decode(accessToken)
		if err != nil {
			writeError(w, apperror.ErrInvalidToken)
			return
		}
		principalID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeError(w, apperror.ErrInvalidToken)
			return
		}
		if err := ctx.Session.RevokeAll(r.Context(), principalID); err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, map[string]string{"status": "revoked"})
	}
}

func JWKSHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctx.Codec.JWKS())
	}
}

func HealthHandler(ctx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := map[string]string{"database": "ok", "volatile_store": "ok", "cache": "ok"}
		status := "ok"

		if err := ctx.Store.Ping(r.Context()); err != nil {
			services["volatile_store"] = "down"
			status = "degraded"
		}

		writeJSON(w, http.StatusOK, types.HealthResponse{Status: status, Services: services})
	}
}
