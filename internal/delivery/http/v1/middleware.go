package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/smart-goals/internal/services"
)

const (
	userIDCtxKey    = "user_id"
	sessionIDCtxKey = "session_id"
)

// HandleAuthMiddleware resolves the session of the request. The access
// token comes from the Authorization header or, for websocket upgrades
// that can't set headers, from the access token cookie. An expired token
// is refreshed in place.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	accessToken, ok := requestAccessToken(c)
	if !ok {
		h.logger.Error().Msg("access token required")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	_, err := h.auth.ParseJWTToken(accessToken)
	if err != nil {
		if !errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Error().
				Err(err).
				Msg("failed to parse token")
			abort(c, newStatusTextError(http.StatusUnauthorized))
			return
		}

		result, ok := h.refresh(c)
		if !ok {
			return
		}
		accessToken = result.AccessToken
	}

	session, err := h.auth.ResolveSession(c, accessToken)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to resolve session")
		switch {
		case errors.Is(err, services.ErrSessionNotFound),
			errors.Is(err, services.ErrSessionExpired):
			abort(c, newUnauthorizedError(err.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	browserFingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	if browserFingerprint != session.Fingerprint {
		h.logger.Error().
			Str("session_id", session.ID).
			Msg("fingerprint mismatch")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return
	}

	c.Set(userIDCtxKey, session.UserID)
	c.Set(sessionIDCtxKey, session.ID)
	c.Next()
}

func requestAccessToken(c *gin.Context) (string, bool) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header != "" {
		const bearerPrefix = "Bearer"
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != bearerPrefix || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	token, err := c.Cookie(accessTokenCookie)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// currentUserID returns the user resolved by the auth middleware.
func (h *handlerImpl) currentUserID(c *gin.Context) (string, bool) {
	userID, ok := getStringFromContext(c, userIDCtxKey)
	if !ok || userID == "" {
		h.logger.Error().Msg("no user id found in context")
		abort(c, newStatusTextError(http.StatusUnauthorized))
		return "", false
	}
	return userID, true
}
