package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddr = "0xABCDEF0123456789abcdef0123456789ABCDEF01"

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Issue(testAddr)
	require.NoError(t, err)

	addr, err := m.Verify(token)
	require.NoError(t, err)
	// The token carries the normalized form.
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr)
}

func TestIssueRejectsBadAddress(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	_, err := m.Issue("not-an-address")
	assert.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Issue(testAddr)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", time.Millisecond)
	token, err := m.Issue(testAddr)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = m.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	_, err := m.Verify("not.a.token")
	assert.Error(t, err)
}

func TestAdminKeyValid(t *testing.T) {
	assert.True(t, AdminKeyValid("k-123", "k-123"))
	assert.False(t, AdminKeyValid("k-123", "k-124"))
	assert.False(t, AdminKeyValid("k-123", ""))
	// An unset server key rejects everything, including empty.
	assert.False(t, AdminKeyValid("", ""))
}
