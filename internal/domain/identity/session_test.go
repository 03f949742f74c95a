package identity

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	accountID := uuid.New()
	other := uuid.New()
	scope := SessionScope{
		UserID:    uuid.New(),
		AccountID: accountID,
		TenantID:  uuid.New(),
		RoleID:    uuid.New(),
		Accounts:  []uuid.UUID{accountID, other, other},
	}

	s, token, err := NewSession(scope, "test-agent", "10.0.0.1", time.Hour)
	require.NoError(t, err)

	id, secret, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, id)
	assert.True(t, s.MatchesSecret(secret))
	assert.NotContains(t, s.SecretHash, strings.Split(token, ".")[1], "secret is never stored")
	assert.Equal(t, []uuid.UUID{other}, s.Accounts, "active account and duplicates are dropped")
	assert.True(t, s.CanAccessAccount(accountID))
	assert.True(t, s.CanAccessAccount(other))
	assert.False(t, s.CanAccessAccount(uuid.New()))
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, 5*time.Second)

	assert.True(t, s.MatchesCSRF(s.CSRFToken))
	assert.False(t, s.MatchesCSRF(""))
	assert.False(t, s.MatchesCSRF("nope"))
}

func TestSession_MatchesSecret(t *testing.T) {
	s, _, err := NewSession(SessionScope{UserID: uuid.New()}, "", "", time.Minute)
	require.NoError(t, err)

	wrong := make([]byte, sessionSecretBytes)
	assert.False(t, s.MatchesSecret(wrong))
}

func TestParseSessionToken(t *testing.T) {
	good := strings.Repeat("ab", sessionIDBytes) + "." + base64.RawURLEncoding.EncodeToString(make([]byte, sessionSecretBytes))
	_, _, err := ParseSessionToken(good)
	require.NoError(t, err)

	bad := []string{
		"",
		"no-dot",
		"abcd." + base64.RawURLEncoding.EncodeToString(make([]byte, sessionSecretBytes)),
		strings.Repeat("zz", sessionIDBytes) + "." + base64.RawURLEncoding.EncodeToString(make([]byte, sessionSecretBytes)),
		strings.Repeat("ab", sessionIDBytes) + ".!!!",
		strings.Repeat("ab", sessionIDBytes) + "." + base64.RawURLEncoding.EncodeToString(make([]byte, 8)),
	}
	for _, token := range bad {
		_, _, err := ParseSessionToken(token)
		assert.ErrorIs(t, err, ErrSessionInvalid, token)
	}
}

func TestNewSession_UserAgentIsTruncatedOnRuneBoundary(t *testing.T) {
	scope := SessionScope{UserID: uuid.New(), AccountID: uuid.New(), TenantID: uuid.New(), RoleID: uuid.New()}

	agent := "a" + strings.Repeat("é", 200)
	s, _, err := NewSession(scope, agent, "10.0.0.1", time.Hour)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(s.UserAgent))
	assert.Len(t, s.UserAgent, 255)
	assert.True(t, strings.HasPrefix(agent, s.UserAgent))

	short := strings.Repeat("ü", 10)
	s, _, err = NewSession(scope, short, "10.0.0.1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, short, s.UserAgent)
}
