// Package security holds credential abuse controls shared by the HTTP and
// WebSocket entry points.
package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	lockoutCleanup    = 60 * time.Second
	lockoutMaxRecords = 10000
)

// LockoutPolicy configures when a key is locked out.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultLockoutPolicy locks a key for five minutes after five failures in
// fifteen minutes.
var DefaultLockoutPolicy = LockoutPolicy{
	MaxAttempts: 5,
	Window:      15 * time.Minute,
	Lockout:     5 * time.Minute,
}

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// KeyLockout tracks failed authentications per API key hash. Raw keys are
// never stored.
type KeyLockout struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	policy  LockoutPolicy
	now     func() time.Time
	log     *logrus.Logger
}

// NewKeyLockout creates a KeyLockout and starts a cleanup goroutine that
// stops when ctx is cancelled. Zero policy fields take the defaults.
func NewKeyLockout(ctx context.Context, log *logrus.Logger, policy LockoutPolicy) *KeyLockout {
	k := newKeyLockout(log, policy, time.Now)
	go k.cleanupLoop(ctx)

	return k
}

func newKeyLockout(log *logrus.Logger, policy LockoutPolicy, now func() time.Time) *KeyLockout {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultLockoutPolicy.MaxAttempts
	}

	if policy.Window <= 0 {
		policy.Window = DefaultLockoutPolicy.Window
	}

	if policy.Lockout <= 0 {
		policy.Lockout = DefaultLockoutPolicy.Lockout
	}

	return &KeyLockout{
		records: make(map[string]*failureRecord),
		policy:  policy,
		now:     now,
		log:     log,
	}
}

func keyHash(apiKey string) string {
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:])
}

// Blocked reports whether the key is currently locked out.
func (k *KeyLockout) Blocked(apiKey string) bool {
	kh := keyHash(apiKey)

	k.mu.Lock()
	defer k.mu.Unlock()

	rec, ok := k.records[kh]
	if !ok || rec.lockedAt.IsZero() {
		return false
	}

	return k.now().Sub(rec.lockedAt) < k.policy.Lockout
}

// Fail records a failed attempt for the key.
func (k *KeyLockout) Fail(apiKey string) {
	kh := keyHash(apiKey)
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	rec, ok := k.records[kh]
	if !ok || now.Sub(rec.firstFail) > k.policy.Window {
		rec = &failureRecord{firstFail: now}
		k.records[kh] = rec
	}

	rec.attempts++
	if rec.attempts >= k.policy.MaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		k.log.WithField("key_hash", kh[:16]+"...").Warn("auth.key_locked")
	}
}

// Succeed clears the failure history of the key.
func (k *KeyLockout) Succeed(apiKey string) {
	kh := keyHash(apiKey)

	k.mu.Lock()
	delete(k.records, kh)
	k.mu.Unlock()
}

func (k *KeyLockout) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(lockoutCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.sweep()
		}
	}
}

// sweep drops expired records and, past the record cap, the oldest ones.
func (k *KeyLockout) sweep() {
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	for key, rec := range k.records {
		expiredLock := !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= k.policy.Lockout
		staleWindow := rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= k.policy.Window

		if expiredLock || staleWindow {
			delete(k.records, key)
		}
	}

	if over := len(k.records) - lockoutMaxRecords; over > 0 {
		k.evictOldest(over)
	}
}

// evictOldest removes the n records with the oldest first failure.
// Caller must hold k.mu.
func (k *KeyLockout) evictOldest(n int) {
	type entry struct {
		key  string
		time time.Time
	}

	entries := make([]entry, 0, len(k.records))
	for key, rec := range k.records {
		entries = append(entries, entry{key, rec.firstFail})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].time.Before(entries[j].time)
	})

	for i := range n {
		delete(k.records, entries[i].key)
	}
}
