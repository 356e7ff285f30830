package auth

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"
)

// GrantDuration is the fixed lifetime of an authorization grant.
const GrantDuration = 5 * time.Minute

// Auth errors.
var (
	// ErrBadHash is returned when the offered hash does not match the
	// daemon-configured secret.
	ErrBadHash = errors.New("auth: hash mismatch")
)

// Grant is a time-bounded authorization window.
type Grant struct {
	GrantedAt time.Time
	ExpiresAt time.Time
}

// expired reports whether the grant has lapsed as of now. Callers should
// pass a time.Time obtained from time.Now() in the same process so its
// monotonic reading is comparable to GrantedAt/ExpiresAt's — a wall-clock
// jump backward then cannot extend the window (spec §3 invariant).
func (g Grant) expired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// Authorizer holds the daemon's single authorization grant. One instance is
// owned by the commissioning facade (spec: "AuthorizationGrant is owned by
// CommissioningService").
type Authorizer struct {
	mu         sync.RWMutex
	secretHash [32]byte
	grant      *Grant
}

// New computes SHA3-256(secret) once and returns an Authorizer with no
// current grant.
func New(secret []byte) *Authorizer {
	a := &Authorizer{}
	a.secretHash = sha3.Sum256(secret)
	return a
}

// Authorize verifies offeredHash against the daemon secret's hash in
// constant time. On success it (re)sets the grant to now+5min, refreshing
// any prior grant.
func (a *Authorizer) Authorize(offeredHash [32]byte) error {
	if subtle.ConstantTimeCompare(a.secretHash[:], offeredHash[:]) != 1 {
		return ErrBadHash
	}

	now := time.Now()
	a.mu.Lock()
	a.grant = &Grant{GrantedAt: now, ExpiresAt: now.Add(GrantDuration)}
	a.mu.Unlock()
	return nil
}

// IsAuthorized reports whether a live grant exists as of now.
func (a *Authorizer) IsAuthorized(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.grant == nil {
		return false
	}
	return !a.grant.expired(now)
}

// Revoke clears any current grant. Used when the daemon wants to force
// re-authorization (e.g. on explicit operator request); not driven by a
// BLE link disconnect, which must not clear the grant (spec §5).
func (a *Authorizer) Revoke() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.grant = nil
}

// CurrentGrant returns a copy of the current grant and whether one exists.
func (a *Authorizer) CurrentGrant() (Grant, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.grant == nil {
		return Grant{}, false
	}
	return *a.grant, true
}
