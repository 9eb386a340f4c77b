package keyring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/pkg/core"
)

func testKeys() []*APIKey {
	return []*APIKey{
		{ID: "main", Credentials: core.NewCredentials("mainkey-123456", "mainsecret-123456")},
		{ID: "testnet", Credentials: core.NewCredentials("testkey-123456", "testsecret-123456")},
	}
}

func TestNewKeyRing_Empty(t *testing.T) {
	kr := NewKeyRing(nil, RotationManual)
	_, ok := kr.Current()
	assert.False(t, ok)
	assert.Equal(t, "", kr.CurrentID())
	assert.Equal(t, 0, kr.Len())
}

func TestNewKeyRing_CopiesKeys(t *testing.T) {
	keys := testKeys()
	kr := NewKeyRing(keys, RotationManual)
	keys[0].Credentials.APIKey = "changed"

	creds, ok := kr.Current()
	require.True(t, ok)
	assert.Equal(t, "mainkey-123456", creds.APIKey)
}

func TestKeyRing_Use(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationManual)

	require.NoError(t, kr.Use("testnet"))
	assert.Equal(t, "testnet", kr.CurrentID())

	assert.Error(t, kr.Use("missing"))
	assert.Equal(t, "testnet", kr.CurrentID())
}

func TestKeyRing_RotateSkipsDisabled(t *testing.T) {
	keys := append(testKeys(), &APIKey{ID: "spare", Credentials: core.NewCredentials("k", "s")})
	kr := NewKeyRing(keys, RotationManual)
	kr.Disable("testnet")

	kr.Rotate()
	assert.Equal(t, "spare", kr.CurrentID())

	kr.Rotate()
	assert.Equal(t, "main", kr.CurrentID())
}

func TestKeyRing_CurrentSkipsDisabled(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationManual)
	kr.Disable("main")
	assert.Equal(t, "testnet", kr.CurrentID())

	kr.Disable("testnet")
	_, ok := kr.Current()
	assert.False(t, ok)

	kr.Enable("main")
	assert.Equal(t, "main", kr.CurrentID())
}

func TestKeyRing_OnError(t *testing.T) {
	tests := []struct {
		name       string
		strategy   RotationStrategy
		err        error
		wantErrors int
		wantID     string
	}{
		{"exchange rejection rotates", RotationOnError, core.NewError(core.ErrorTypeExchange, "Invalid API-key"), 1, "testnet"},
		{"manual keeps key", RotationManual, core.NewError(core.ErrorTypeExchange, "Invalid API-key"), 1, "main"},
		{"timeout is ignored", RotationOnError, core.NewError(core.ErrorTypeTimeout, "Request timeout"), 0, "main"},
		{"plain error is ignored", RotationOnError, fmt.Errorf("boom"), 0, "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr := NewKeyRing(testKeys(), tt.strategy)
			kr.OnError(tt.err)

			key, ok := kr.Get("main")
			require.True(t, ok)
			assert.Equal(t, tt.wantErrors, key.ErrorCount)
			assert.Equal(t, tt.wantID, kr.CurrentID())
		})
	}
}

func TestKeyRing_MarkUsed(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationManual)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	kr.now = func() time.Time { return at }

	kr.MarkUsed()
	key, _ := kr.Get("main")
	assert.Equal(t, at, key.LastUsed)
}

func TestKeyRing_AddReplacesCredentials(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationManual)
	kr.Add("main", core.NewCredentials("newkey", "newsecret"))
	kr.Add("extra", core.NewCredentials("x", "y"))

	assert.Equal(t, 3, kr.Len())
	creds, _ := kr.Current()
	assert.Equal(t, "newkey", creds.APIKey)
}

func TestKeyRing_RemoveAndClear(t *testing.T) {
	kr := NewKeyRing(testKeys(), RotationManual)
	require.NoError(t, kr.Use("testnet"))

	kr.Remove("testnet")
	assert.Equal(t, 1, kr.Len())
	assert.Equal(t, "main", kr.CurrentID())

	kr.Clear()
	assert.Equal(t, 0, kr.Len())
	_, ok := kr.Current()
	assert.False(t, ok)
}

func TestAPIKey_StringMasksKey(t *testing.T) {
	key := &APIKey{ID: "main", Credentials: core.NewCredentials("AKIAabcdefghijkl", "secret")}
	s := key.String()
	assert.Equal(t, "APIKey{ID:main, Key:AKIA****ijkl}", s)
	assert.NotContains(t, s, "secret")
}
