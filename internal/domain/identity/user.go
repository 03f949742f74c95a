package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/flowdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Password cost for bcrypt
const bcryptCost = 12

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	hasLetterRegex = regexp.MustCompile(`[a-zA-Z]`)
	hasNumberRegex = regexp.MustCompile(`[0-9]`)
)

// User is a person who can sign in. Users are global; tenant access comes
// from memberships.
type User struct {
	shared.BaseAggregateRoot
	Email           string
	Name            string
	PasswordHash    string
	Status          UserStatus
	EmailVerifiedAt *time.Time
	LastLoginAt     *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(email, name, password string) (*User, error) {
	verr := &shared.ValidationError{}
	if err := validateEmail(email); err != nil {
		verr.Add("email", err.Error())
	}
	if err := validateName(name); err != nil {
		verr.Add("name", err.Error())
	}
	if err := validatePassword(password); err != nil {
		verr.Add("password", err.Error())
	}
	if verr.HasErrors() {
		return nil, verr
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             NormalizeEmail(email),
		Name:              strings.TrimSpace(name),
		PasswordHash:      hash,
		Status:            UserStatusActive,
	}
	u.AddDomainEvent(shared.NewGenericEvent(EventUserCreated, AggregateUser, u.ID, uuid.Nil, map[string]any{"email": u.Email}))
	return u, nil
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// VerifyPassword checks a plaintext password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the password after checking the current one
func (u *User) ChangePassword(current, next string) error {
	if !u.VerifyPassword(current) {
		return shared.NewValidationError("current_password", "Current password is incorrect")
	}
	return u.SetPassword(next)
}

// SetPassword replaces the password without checking the old one (reset flow)
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return shared.NewValidationError("password", err.Error())
	}
	hash, err := hashPassword(password)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.Touch()
	return nil
}

// UpdateProfile changes the display name
func (u *User) UpdateProfile(name string) error {
	if err := validateName(name); err != nil {
		return shared.NewValidationError("name", err.Error())
	}
	u.Name = strings.TrimSpace(name)
	u.Touch()
	return nil
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
}

// MarkEmailVerified records that the user proved ownership of the address
func (u *User) MarkEmailVerified() {
	if u.EmailVerifiedAt == nil {
		now := time.Now()
		u.EmailVerifiedAt = &now
		u.Touch()
	}
}

// Disable prevents the user from signing in
func (u *User) Disable() {
	u.Status = UserStatusDisabled
	u.Touch()
}

// Enable re-allows sign in
func (u *User) Enable() {
	u.Status = UserStatusActive
	u.Touch()
}

// ValidatePassword checks a candidate password against the password policy
func ValidatePassword(password string) error {
	if err := validatePassword(password); err != nil {
		return shared.NewValidationError("password", err.Error())
	}
	return nil
}

// CanLogin reports whether the user may sign in
func (u *User) CanLogin() bool {
	return u.Status == UserStatusActive && !u.IsDeleted()
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email is required")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name is required")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	if !hasLetterRegex.MatchString(password) || !hasNumberRegex.MatchString(password) {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
