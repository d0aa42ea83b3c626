// cache.go -- In-process registry of authenticated users.
//
// The cache is the only shared mutable state in the application. It maps the
// provider-issued subject identifier to the profile and token material
// captured at sign-in, so later requests don't repeat downstream lookups.
// Entries live for the process lifetime: no TTL, no capacity bound, no
// persistence. A restart empties the cache, which correctly signs everyone
// out because sessions hold nothing but the subject identifier.
package identity

import (
	"errors"
	"sync"
)

// ErrNotFound is returned by SetEmail when no record exists for the subject.
// Handlers only mutate records they previously resolved, so hitting this
// means a bug (or an eviction racing the mutation), not user error.
var ErrNotFound = errors.New("identity: subject not found")

// Profile holds the identity claims rendered in views and email bodies.
type Profile struct {
	DisplayName string
	Username    string // preferred_username claim, usually the sign-in address
}

// UserRecord is one authenticated principal.
// AccessToken and RefreshToken are credential material: never log them and
// never pass them to a template.
type UserRecord struct {
	SubjectID    string
	Profile      Profile
	AccessToken  string
	RefreshToken string

	// Email is resolved lazily through the Graph API on the first
	// authenticated visit to the home page, then reused from the cache.
	Email string
}

// Cache is a concurrency-safe subject -> UserRecord registry.
// Handlers run on parallel goroutines, so every read-modify-write sequence
// happens under the mutex, and lookups hand out private copies: the stored
// record never escapes the lock, and the only way to mutate it is SetEmail.
// Construct with New and inject from main; there is no package-level instance.
type Cache struct {
	mu      sync.RWMutex
	records map[string]*UserRecord
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{records: make(map[string]*UserRecord)}
}

// Find returns a copy of the record for subjectID, or false when none
// exists. The copy is the caller's own: reading it never races with a
// concurrent SetEmail, and writing to it does not touch the cache.
func (c *Cache) Find(subjectID string) (*UserRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[subjectID]
	if !ok {
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// Insert adds rec if no record exists for its subject and returns a copy of
// the stored record plus true. When the subject is already present a copy of
// the existing record is returned with false: cached data wins over freshly
// issued data for returning users, and two concurrent first logins can never
// create duplicate entries. The cache keeps its own copy of rec, so the
// caller's pointer stays detached either way.
func (c *Cache) Insert(rec *UserRecord) (*UserRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.records[rec.SubjectID]; ok {
		cp := *existing
		return &cp, false
	}
	stored := *rec
	c.records[rec.SubjectID] = &stored
	cp := stored
	return &cp, true
}

// SetEmail records the lazily resolved email address for subjectID.
// Idempotent: re-setting the same address leaves the cache unchanged.
// Returns ErrNotFound when the subject is absent.
func (c *Cache) SetEmail(subjectID, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[subjectID]
	if !ok {
		return ErrNotFound
	}
	rec.Email = email
	return nil
}

// Remove evicts the record for subjectID. Removing an absent subject is a
// no-op: logout in a second browser tab must not fail the first.
func (c *Cache) Remove(subjectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, subjectID)
}

// Len reports the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
