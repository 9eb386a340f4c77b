// Package keyring keeps API credentials for the running session. Nothing is
// ever written to disk or logged unmasked.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/pkg/core"
)

type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
	logger   zerolog.Logger
	now      func() time.Time
}

// APIKey is one named credential pair, e.g. "main" or "testnet".
type APIKey struct {
	ID          string
	Credentials core.Credentials
	Disabled    bool
	LastUsed    time.Time
	ErrorCount  int
}

type RotationStrategy int

const (
	// RotationManual keeps the selected key until Use or Rotate is called.
	RotationManual RotationStrategy = iota
	// RotationOnError moves to the next enabled key when the exchange
	// rejects the current one.
	RotationOnError
)

func NewKeyRing(keys []*APIKey, strategy RotationStrategy) *KeyRing {
	keysCopy := make([]*APIKey, 0, len(keys))
	for _, k := range keys {
		keysCopy = append(keysCopy, &APIKey{
			ID:          k.ID,
			Credentials: k.Credentials,
			Disabled:    k.Disabled,
			LastUsed:    k.LastUsed,
			ErrorCount:  k.ErrorCount,
		})
	}

	return &KeyRing{
		keys:     keysCopy,
		strategy: strategy,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
}

func (k *KeyRing) SetLogger(logger zerolog.Logger) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = logger
}

// Current returns the credentials of the selected key, or false when no
// enabled key exists.
func (k *KeyRing) Current() (core.Credentials, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key := k.currentLocked()
	if key == nil {
		return core.Credentials{}, false
	}
	return key.Credentials, true
}

// CurrentID returns the ID of the selected key, or "" when none is usable.
func (k *KeyRing) CurrentID() string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	key := k.currentLocked()
	if key == nil {
		return ""
	}
	return key.ID
}

func (k *KeyRing) currentLocked() *APIKey {
	for i := 0; i < len(k.keys); i++ {
		idx := (k.current + i) % len(k.keys)
		if !k.keys[idx].Disabled {
			return k.keys[idx]
		}
	}
	return nil
}

// Use selects the key with the given ID.
func (k *KeyRing) Use(id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i, key := range k.keys {
		if key.ID == id {
			k.current = i
			return nil
		}
	}
	return fmt.Errorf("key %q not found", id)
}

func (k *KeyRing) Rotate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rotateLocked()
}

func (k *KeyRing) rotateLocked() {
	if len(k.keys) == 0 {
		return
	}

	start := k.current
	for {
		k.current = (k.current + 1) % len(k.keys)
		if !k.keys[k.current].Disabled || k.current == start {
			return
		}
	}
}

// OnError records a failed query made with the selected key. Only
// rejections by the exchange count; transport failures say nothing about
// the key.
func (k *KeyRing) OnError(err error) {
	if !core.IsExchangeError(err) && !core.IsCredentialsMissing(err) {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	key := k.currentLocked()
	if key == nil {
		return
	}
	key.ErrorCount++
	k.logger.Warn().Str("key", key.ID).Int("errors", key.ErrorCount).Str("reason", core.Message(err)).Msg("api key rejected")

	if k.strategy == RotationOnError {
		k.rotateLocked()
	}
}

func (k *KeyRing) MarkUsed() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.currentLocked(); key != nil {
		key.LastUsed = k.now()
	}
}

func (k *KeyRing) Disable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.findLocked(id); key != nil {
		key.Disabled = true
	}
}

func (k *KeyRing) Enable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.findLocked(id); key != nil {
		key.Disabled = false
		key.ErrorCount = 0
	}
}

// Get returns a copy of the key with the given ID.
func (k *KeyRing) Get(id string) (APIKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if key := k.findLocked(id); key != nil {
		return *key, true
	}
	return APIKey{}, false
}

func (k *KeyRing) findLocked(id string) *APIKey {
	for _, key := range k.keys {
		if key.ID == id {
			return key
		}
	}
	return nil
}

// Add stores a key. An existing key with the same ID gets the new credentials.
func (k *KeyRing) Add(id string, creds core.Credentials) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.findLocked(id); key != nil {
		key.Credentials.Clear()
		key.Credentials = creds
		key.ErrorCount = 0
		return
	}
	k.keys = append(k.keys, &APIKey{ID: id, Credentials: creds})
}

// Remove deletes the key and wipes its credentials.
func (k *KeyRing) Remove(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i, key := range k.keys {
		if key.ID == id {
			key.Credentials.Clear()
			k.keys = append(k.keys[:i], k.keys[i+1:]...)
			if k.current >= len(k.keys) {
				k.current = 0
			}
			return
		}
	}
}

// Clear wipes and removes every key.
func (k *KeyRing) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, key := range k.keys {
		key.Credentials.Clear()
	}
	k.keys = nil
	k.current = 0
}

func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", k.ID, core.MaskSecret(k.Credentials.APIKey))
}
