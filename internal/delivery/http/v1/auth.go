package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/smart-goals/internal/services"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=255"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=255"`
}

func (h *handlerImpl) HandleLogin(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req, c.ShouldBind) {
		return
	}

	_, ok := h.openSession(c, "login", func(fingerprint string) (*services.LoginResult, error) {
		return h.auth.Login(c, services.LoginParams{
			Email:       req.Email,
			Password:    req.Password,
			Fingerprint: fingerprint,
		})
	})
	if ok {
		c.Status(http.StatusOK)
	}
}

func (h *handlerImpl) HandleRefresh(c *gin.Context) {
	if _, ok := h.refresh(c); ok {
		c.Status(http.StatusOK)
	}
}

// refresh rotates the session of the refresh token cookie and sets the new
// token pair. It aborts c and reports false on failure.
func (h *handlerImpl) refresh(c *gin.Context) (*services.LoginResult, bool) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get refresh token cookie")
		abort(c, newBadRequestError(errMandatoryCookieNotFound.Error()))
		return nil, false
	}

	return h.openSession(c, "refresh session", func(fingerprint string) (*services.LoginResult, error) {
		return h.auth.Refresh(c, services.RefreshParams{
			RefreshToken: refreshToken,
			Fingerprint:  fingerprint,
		})
	})
}

type registerRequest struct {
	loginRequest
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req, c.ShouldBindJSON) {
		return
	}
	h.logger.Info().
		Str("email", req.Email).
		Msg("register request")

	_, ok := h.openSession(c, "register user", func(fingerprint string) (*services.LoginResult, error) {
		return h.auth.Register(c, services.LoginParams{
			Email:       req.Email,
			Password:    req.Password,
			Fingerprint: fingerprint,
		})
	})
	if ok {
		c.Status(http.StatusCreated)
	}
}

func (h *handlerImpl) bind(c *gin.Context, req any, bindFn func(any) error) bool {
	err := bindFn(req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return false
	}
	return true
}

// openSession runs an auth call bound to the client fingerprint and sets
// the resulting token cookies. It aborts c and reports false on failure.
func (h *handlerImpl) openSession(
	c *gin.Context,
	action string,
	call func(fingerprint string) (*services.LoginResult, error),
) (*services.LoginResult, bool) {
	fingerprint, err := generateFingerprint(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to generate fingerprint")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return nil, false
	}

	result, err := call(fingerprint)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msgf("failed to %s", action)
		abort(c, authError(err))
		return nil, false
	}

	setTokenCookies(c, result)
	return result, true
}

var unauthorizedAuthErrors = []error{
	services.ErrUserNotFound,
	services.ErrUserPasswordMismatch,
	services.ErrSessionNotFound,
	services.ErrSessionExpired,
}

func authError(err error) apiError {
	for _, target := range unauthorizedAuthErrors {
		if errors.Is(err, target) {
			return newUnauthorizedError(target.Error())
		}
	}
	if errors.Is(err, services.ErrUserAlreadyExists) {
		return newConflictError(services.ErrUserAlreadyExists.Error())
	}
	return newStatusTextError(http.StatusInternalServerError)
}

func (h *handlerImpl) HandleLogout(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.auth.Logout(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to logout")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	clearCookie(c, accessTokenCookie)
	clearCookie(c, refreshTokenCookie)

	c.Status(http.StatusNoContent)
}

func generateFingerprint(c *gin.Context) (string, error) {
	fingerprintBytes, err := json.Marshal(map[string]string{
		"client_ip":  c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal json: %w", err)
	}
	return string(fingerprintBytes), nil
}

func getStringFromContext(c *gin.Context, key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

func setTokenCookies(c *gin.Context, result *services.LoginResult) {
	now := time.Now()
	setAccessTokenCookie(c, result.AccessToken, result.AccessTokenExpiresAt.Sub(now))
	setRefreshTokenCookie(c, result.RefreshToken, result.RefreshTokenExpiresAt.Sub(now))
}

func setAccessTokenCookie(c *gin.Context, token string, maxAge time.Duration) {
	// httpOnly must be false to allow client-side JavaScript
	// to read the cookie and send it in the Authorization header.
	const secure, httpOnly = false, false
	c.SetCookie(accessTokenCookie, token, int(maxAge.Seconds()),
		"/", "", secure, httpOnly)
}

func setRefreshTokenCookie(c *gin.Context, token string, maxAge time.Duration) {
	const secure, httpOnly = false, true
	c.SetCookie(refreshTokenCookie, token, int(maxAge.Seconds()),
		"/", "", secure, httpOnly)
}

func clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1,
		"/", "", false, false)
}
