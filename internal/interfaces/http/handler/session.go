package handler

import (
	"context"
	"net/http"

	appidentity "github.com/flowdesk/backend/internal/application/identity"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/flowdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionAuthenticator is the part of the auth service used by SessionHandler
type SessionAuthenticator interface {
	Signup(ctx context.Context, req appidentity.SignupRequest, client appidentity.ClientInfo) (*appidentity.AuthResult, error)
	Login(ctx context.Context, req appidentity.LoginRequest, client appidentity.ClientInfo) (*appidentity.AuthResult, error)
	Logout(ctx context.Context, sess *identity.Session) error
	Current(ctx context.Context, sess *identity.Session) (*appidentity.SessionResponse, error)
	SwitchTenant(ctx context.Context, sess *identity.Session, tenantID uuid.UUID) (*appidentity.SessionResponse, error)
	SwitchAccount(ctx context.Context, sess *identity.Session, accountID uuid.UUID) (*appidentity.SessionResponse, error)
	ListSessions(ctx context.Context, sess *identity.Session) ([]appidentity.SessionInfo, error)
	RevokeSession(ctx context.Context, sess *identity.Session, sessionID string) error
}

// ProfileManager is the part of the user service used by SessionHandler
type ProfileManager interface {
	UpdateProfile(ctx context.Context, sess *identity.Session, req appidentity.UpdateProfileRequest) (*appidentity.UserResponse, error)
	ChangePassword(ctx context.Context, sess *identity.Session, req appidentity.ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, req appidentity.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req appidentity.ResetPasswordRequest) error
}

// SessionHandler handles /api/session: signup, login, the current session
// and the signed-in user's own profile
type SessionHandler struct {
	BaseHandler
	auth   SessionAuthenticator
	users  ProfileManager
	cookie *middleware.SessionCookie
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(auth SessionAuthenticator, users ProfileManager, cookie *middleware.SessionCookie) *SessionHandler {
	return &SessionHandler{
		auth:   auth,
		users:  users,
		cookie: cookie,
	}
}

func clientInfo(c *gin.Context) appidentity.ClientInfo {
	return appidentity.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

// session returns the authenticated session or writes a 401
func (h *SessionHandler) session(c *gin.Context) (*identity.Session, bool) {
	sess := middleware.GetSession(c)
	if sess == nil {
		h.Unauthorized(c, "Authentication required")
		return nil, false
	}
	return sess, true
}

// opened sets the cookie for a freshly opened session and writes its view
func (h *SessionHandler) opened(c *gin.Context, status int, result *appidentity.AuthResult) {
	if err := h.cookie.Set(c, result.Token, result.Session.ExpiresAt); err != nil {
		h.HandleError(c, err)
		return
	}
	if status == http.StatusCreated {
		h.Created(c, result.View)
		return
	}
	h.Success(c, result.View)
}

// Signup godoc
// @Summary      Sign up
// @Description  Create a user with a personal account and workspace, and open a session
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body identity.SignupRequest true "Signup data"
// @Success      201 {object} APIResponse[identity.SessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /session/signup [post]
func (h *SessionHandler) Signup(c *gin.Context) {
	var req appidentity.SignupRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.auth.Signup(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.opened(c, http.StatusCreated, result)
}

// Login godoc
// @Summary      Log in
// @Description  Authenticate with email and password and open a session
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body identity.LoginRequest true "Credentials"
// @Success      200 {object} APIResponse[identity.SessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req appidentity.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.opened(c, http.StatusOK, result)
}

// Current godoc
// @Summary      Current session
// @Description  Return the signed-in user with the active account, tenant and role
// @Tags         session
// @Produce      json
// @Success      200 {object} APIResponse[identity.SessionResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	view, err := h.auth.Current(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Logout godoc
// @Summary      Log out
// @Description  Revoke the current session and clear the cookie
// @Tags         session
// @Success      204
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /session [delete]
func (h *SessionHandler) Logout(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), sess); err != nil {
		h.HandleError(c, err)
		return
	}
	h.cookie.Clear(c)
	h.NoContent(c)
}

// SwitchTenant godoc
// @Summary      Switch tenant
// @Description  Make another tenant the active tenant of the session
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body identity.SwitchTenantRequest true "Target tenant"
// @Success      200 {object} APIResponse[identity.SessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /session/tenant [put]
func (h *SessionHandler) SwitchTenant(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req appidentity.SwitchTenantRequest
	if !h.bindJSON(c, &req) {
		return
	}
	view, err := h.auth.SwitchTenant(c.Request.Context(), sess, req.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// SwitchAccount godoc
// @Summary      Switch account
// @Description  Activate the first tenant of another account the user belongs to
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body identity.SwitchAccountRequest true "Target account"
// @Success      200 {object} APIResponse[identity.SessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /session/account [put]
func (h *SessionHandler) SwitchAccount(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req appidentity.SwitchAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	view, err := h.auth.SwitchAccount(c.Request.Context(), sess, req.AccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ListSessions godoc
// @Summary      List sessions
// @Description  List the live sessions of the signed-in user
// @Tags         session
// @Produce      json
// @Success      200 {object} APIResponse[[]identity.SessionInfo]
// @Failure      401 {object} ErrorResponse
// @Router       /session/list [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sessions, err := h.auth.ListSessions(c.Request.Context(), sess)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sessions)
}

// RevokeSession godoc
// @Summary      Revoke a session
// @Description  Sign out one of the user's sessions. Revoking the current session also clears the cookie.
// @Tags         session
// @Param        sessionId path string true "Session ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /session/list/{sessionId} [delete]
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id := c.Param("sessionId")
	if err := h.auth.RevokeSession(c.Request.Context(), sess, id); err != nil {
		h.HandleError(c, err)
		return
	}
	if id == sess.ID {
		h.cookie.Clear(c)
	}
	h.NoContent(c)
}

// UpdateProfile godoc
// @Summary      Update profile
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        request body identity.UpdateProfileRequest true "Profile"
// @Success      200 {object} APIResponse[identity.UserResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /session/profile [put]
func (h *SessionHandler) UpdateProfile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req appidentity.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), sess, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Change the password and sign out every other session
// @Tags         session
// @Accept       json
// @Param        request body identity.ChangePasswordRequest true "Passwords"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /session/password [put]
func (h *SessionHandler) ChangePassword(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req appidentity.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), sess, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ForgotPassword godoc
// @Summary      Request a password reset
// @Description  Email a one-time reset token. Unknown addresses are accepted silently.
// @Tags         session
// @Accept       json
// @Param        request body identity.ForgotPasswordRequest true "Email"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /session/password/forgot [post]
func (h *SessionHandler) ForgotPassword(c *gin.Context) {
	var req appidentity.ForgotPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.RequestPasswordReset(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ResetPassword godoc
// @Summary      Reset password
// @Description  Set a new password with a reset token and sign out every session
// @Tags         session
// @Accept       json
// @Param        request body identity.ResetPasswordRequest true "Token and password"
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Router       /session/password/reset [post]
func (h *SessionHandler) ResetPassword(c *gin.Context) {
	var req appidentity.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.cookie.Clear(c)
	h.NoContent(c)
}
