package core

import (
	"fmt"
	"strings"
)

// Credentials holds an API key pair. It is never serialized and its
// string forms mask both values.
type Credentials struct {
	// APIKey is the public API key identifier sent in the request header.
	APIKey string `json:"-"`
	// APISecret is the private key used for signing requests.
	APISecret string `json:"-"`
}

// NewCredentials returns credentials built from the given key pair.
func NewCredentials(key, secret string) Credentials {
	return Credentials{APIKey: key, APISecret: secret}
}

// Blank reports whether either value is empty after trimming whitespace.
func (c Credentials) Blank() bool {
	return strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.APISecret) == ""
}

// Clear wipes both values.
func (c *Credentials) Clear() {
	c.APIKey = ""
	c.APISecret = ""
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{APIKey:%s, APISecret:%s}", MaskSecret(c.APIKey), MaskSecret(c.APISecret))
}

// GoString keeps %#v from printing the raw values.
func (c Credentials) GoString() string {
	return c.String()
}

// MaskSecret returns a display form of s that keeps at most the first and
// last four characters.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
