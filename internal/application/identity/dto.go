package identity

import (
	"time"

	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// =====================
// Session requests
// =====================

// SignupRequest creates a user with a personal workspace
type SignupRequest struct {
	Email      string `json:"email" binding:"required,email,max=200"`
	Name       string `json:"name" binding:"required,min=1,max=200"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
	TenantName string `json:"tenant_name" binding:"omitempty,max=100"`
}

// LoginRequest authenticates with email and password
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ClientInfo identifies the client opening a session
type ClientInfo struct {
	UserAgent string
	IP        string
}

// SwitchTenantRequest changes the active tenant of the session
type SwitchTenantRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
}

// SwitchAccountRequest changes the active account of the session
type SwitchAccountRequest struct {
	AccountID uuid.UUID `json:"account_id" binding:"required"`
}

// UpdateProfileRequest changes the current user's profile
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200"`
}

// ChangePasswordRequest replaces the current user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest sets a new password with a reset token
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// =====================
// Account / tenant requests
// =====================

// UpdateAccountRequest changes account details; empty fields are kept
type UpdateAccountRequest struct {
	Name         string `json:"name" binding:"omitempty,max=200"`
	BillingEmail string `json:"billing_email" binding:"omitempty,email,max=200"`
}

// CreateTenantRequest creates an organization tenant under an account
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// UpdateTenantRequest renames a tenant
type UpdateTenantRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// AddMemberRequest adds an existing user to a tenant
type AddMemberRequest struct {
	Email  string    `json:"email" binding:"required,email"`
	RoleID uuid.UUID `json:"role_id" binding:"required"`
}

// ChangeMemberRoleRequest assigns a different role to a member
type ChangeMemberRoleRequest struct {
	RoleID uuid.UUID `json:"role_id" binding:"required"`
}

// CreateRoleRequest creates a custom role
type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=50"`
	Description string   `json:"description" binding:"max=500"`
	Allowed     []string `json:"allowed"`
}

// UpdateRoleRequest replaces a custom role's fields
type UpdateRoleRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=50"`
	Description string   `json:"description" binding:"max=500"`
	Allowed     []string `json:"allowed"`
}

// =====================
// Responses
// =====================

// UserResponse is the public view of a user
type UserResponse struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AccountResponse is the public view of an account
type AccountResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	BillingEmail       string     `json:"billing_email"`
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscription_status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TenantResponse is the public view of a tenant
type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleResponse is the public view of a role
type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Allowed     []string  `json:"allowed"`
	System      bool      `json:"system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemberResponse is a membership with its user and role
type MemberResponse struct {
	ID       uuid.UUID    `json:"id"`
	TenantID uuid.UUID    `json:"tenant_id"`
	User     UserResponse `json:"user"`
	Role     RoleResponse `json:"role"`
	JoinedAt time.Time    `json:"joined_at"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	User      UserResponse      `json:"user"`
	Account   AccountResponse   `json:"account"`
	Tenant    TenantResponse    `json:"tenant"`
	Role      RoleResponse      `json:"role"`
	Accounts  []AccountResponse `json:"accounts"`
	CSRFToken string            `json:"csrf_token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// SessionInfo lists one of the user's sessions
type SessionInfo struct {
	ID         string    `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	UserAgent  string    `json:"user_agent"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

// AuthResult is returned when a session is opened. Token goes into the
// session cookie and is never serialized.
type AuthResult struct {
	Token   string            `json:"-"`
	Session *identity.Session `json:"-"`
	View    *SessionResponse  `json:"session"`
}

// TenantAccess is the resolved access of a user to a tenant
type TenantAccess struct {
	Tenant     *identity.Tenant
	Membership *identity.Membership
	Role       *identity.Role
}

// Can reports whether the resolved role grants perm
func (a *TenantAccess) Can(perm identity.Permission) bool {
	return a.Role != nil && a.Role.Can(perm)
}

// =====================
// Converters
// =====================

// ToUserResponse converts a user
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Status:          string(u.Status),
		EmailVerifiedAt: u.EmailVerifiedAt,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
	}
}

// ToAccountResponse converts an account
func ToAccountResponse(a *identity.Account) AccountResponse {
	return AccountResponse{
		ID:                 a.ID,
		Name:               a.Name,
		OwnerID:            a.OwnerID,
		BillingEmail:       a.BillingEmail,
		Plan:               string(a.Plan),
		SubscriptionStatus: string(a.SubscriptionStatus),
		CurrentPeriodEnd:   a.CurrentPeriodEnd,
		CreatedAt:          a.CreatedAt,
	}
}

// ToAccountResponses converts a list of accounts
func ToAccountResponses(accounts []*identity.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToAccountResponse(a)
	}
	return out
}

// ToTenantResponse converts a tenant
func ToTenantResponse(t *identity.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		AccountID: t.AccountID,
		Name:      t.Name,
		Slug:      t.Slug,
		Kind:      string(t.Kind),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// ToTenantResponses converts a list of tenants
func ToTenantResponses(tenants []*identity.Tenant) []TenantResponse {
	out := make([]TenantResponse, len(tenants))
	for i, t := range tenants {
		out[i] = ToTenantResponse(t)
	}
	return out
}

// ToRoleResponse converts a role
func ToRoleResponse(r *identity.Role) RoleResponse {
	allowed := r.Allowed
	if allowed == nil {
		allowed = []string{}
	}
	return RoleResponse{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Name:        r.Name,
		Description: r.Description,
		Allowed:     allowed,
		System:      r.System,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ToMemberResponse converts a joined membership
func ToMemberResponse(m *identity.Member) MemberResponse {
	return MemberResponse{
		ID:       m.Membership.ID,
		TenantID: m.Membership.TenantID,
		User:     ToUserResponse(&m.User),
		Role:     ToRoleResponse(&m.Role),
		JoinedAt: m.Membership.CreatedAt,
	}
}

// ToSessionInfo converts a stored session; currentID marks the caller's own
func ToSessionInfo(s *identity.Session, currentID string) SessionInfo {
	return SessionInfo{
		ID:         s.ID,
		TenantID:   s.TenantID,
		UserAgent:  s.UserAgent,
		IP:         s.IP,
		CreatedAt:  s.CreatedAt,
		LastSeenAt: s.LastSeenAt,
		ExpiresAt:  s.ExpiresAt,
		Current:    s.ID == currentID,
	}
}
