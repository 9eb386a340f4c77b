package core

import (
	"fmt"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Blank(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"both_set", NewCredentials("key", "secret"), false},
		{"empty_key", NewCredentials("", "secret"), true},
		{"whitespace_secret", NewCredentials("key", "  \t"), true},
		{"zero", Credentials{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Blank())
		})
	}
}

func TestCredentials_NeverPrinted(t *testing.T) {
	creds := NewCredentials("AKIAabcdefghijkl", "SECRETvalue12345")

	for _, s := range []string{creds.String(), fmt.Sprintf("%v", creds), fmt.Sprintf("%#v", creds), fmt.Sprintf("%+v", creds)} {
		assert.NotContains(t, s, "AKIAabcdefghijkl")
		assert.NotContains(t, s, "SECRETvalue12345")
	}
	assert.Equal(t, "Credentials{APIKey:AKIA****ijkl, APISecret:SECR****2345}", creds.String())
}

func TestCredentials_NotSerialized(t *testing.T) {
	data, err := sonic.Marshal(NewCredentials("key", "secret"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestCredentials_Clear(t *testing.T) {
	creds := NewCredentials("key", "secret")
	creds.Clear()

	assert.Empty(t, creds.APIKey)
	assert.Empty(t, creds.APISecret)
	assert.True(t, creds.Blank())
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "abcd****mnop", MaskSecret("abcdefghijklmnop"))
}
