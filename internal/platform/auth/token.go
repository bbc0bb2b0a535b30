package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTokenNotFound indicates the presented token matches no stored hash.
	ErrTokenNotFound = errors.New("api token not found")

	// ErrTokenInactive indicates the token has been deactivated.
	ErrTokenInactive = errors.New("api token inactive")

	// ErrTokenExpired indicates the token has passed its expiry date.
	ErrTokenExpired = errors.New("api token expired")

	// ErrIPNotAllowed indicates the request came from an IP outside the
	// token's whitelist.
	ErrIPNotAllowed = errors.New("ip address not allowed for this token")
)

// Token scopes.
const (
	ScopeRead      = "read"
	ScopeWrite     = "write"
	ScopeReadWrite = "read_write"
	ScopeAdmin     = "admin"
)

// APIToken is a long-lived credential for programmatic access. The raw
// secret is returned once at creation; only its SHA-256 hash is stored.
type APIToken struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	TokenHash   string     `db:"token_hash" json:"-"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Active      bool       `db:"active" json:"active"`
	Scope       string     `db:"scope" json:"scope"`
	ExpiryDate  *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	LastUsed    *time.Time `db:"last_used" json:"last_used,omitempty"`
	UsageCount  int        `db:"usage_count" json:"usage_count"`
	IPWhitelist *string    `db:"ip_whitelist" json:"ip_whitelist,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the token's expiry date has passed. Tokens
// without an expiry date never expire.
func (t *APIToken) IsExpired(now time.Time) bool {
	return t.ExpiryDate != nil && t.ExpiryDate.Before(now)
}

// AllowsIP checks the comma-separated IP whitelist. An empty whitelist
// allows every address.
func (t *APIToken) AllowsIP(ip string) bool {
	if t.IPWhitelist == nil || strings.TrimSpace(*t.IPWhitelist) == "" {
		return true
	}
	for _, allowed := range strings.Split(*t.IPWhitelist, ",") {
		if strings.TrimSpace(allowed) == ip {
			return true
		}
	}
	return false
}

// AllowsWrite reports whether the token's scope permits mutating calls.
func (t *APIToken) AllowsWrite() bool {
	return t.Scope == ScopeWrite || t.Scope == ScopeReadWrite || t.Scope == ScopeAdmin
}

// AllowsRead reports whether the token's scope permits read calls.
func (t *APIToken) AllowsRead() bool {
	return t.Scope == ScopeRead || t.Scope == ScopeReadWrite || t.Scope == ScopeAdmin
}

// GenerateToken returns a new url-safe random secret and its storage hash.
func GenerateToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken returns the hex SHA-256 of a raw token secret.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenStore persists API tokens.
type TokenStore interface {
	Create(ctx context.Context, t *APIToken) error
	GetByHash(ctx context.Context, hash string) (*APIToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*APIToken, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*APIToken, error)
	Update(ctx context.Context, t *APIToken) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Verifier validates raw token secrets against a TokenStore, recording usage.
type Verifier struct {
	store TokenStore
	now   func() time.Time
}

func NewVerifier(store TokenStore) *Verifier {
	return &Verifier{store: store, now: time.Now}
}

// Verify resolves a raw secret to its token, enforcing active/expiry/IP
// checks and bumping usage counters.
func (v *Verifier) Verify(ctx context.Context, raw, remoteIP string) (*APIToken, error) {
	t, err := v.store.GetByHash(ctx, HashToken(raw))
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrTokenInactive
	}
	now := v.now()
	if t.IsExpired(now) {
		return nil, ErrTokenExpired
	}
	if !t.AllowsIP(remoteIP) {
		return nil, ErrIPNotAllowed
	}

	t.UsageCount++
	used := now
	t.LastUsed = &used
	// Usage bookkeeping is best effort; a failed update must not reject
	// an otherwise valid token.
	_ = v.store.Update(ctx, t)

	return t, nil
}

// InMemoryTokenStore is a thread-safe TokenStore for development and tests.
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*APIToken
	byHash map[string]uuid.UUID
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{
		byID:   make(map[uuid.UUID]*APIToken),
		byHash: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryTokenStore) Create(_ context.Context, t *APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	s.byID[cp.ID] = &cp
	s.byHash[cp.TokenHash] = cp.ID
	return nil
}

func (s *InMemoryTokenStore) GetByHash(_ context.Context, hash string) (*APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryTokenStore) GetByID(_ context.Context, id uuid.UUID) (*APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemoryTokenStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*APIToken
	for _, t := range s.byID {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryTokenStore) Update(_ context.Context, t *APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[t.ID]; !ok {
		return ErrTokenNotFound
	}
	cp := *t
	s.byID[cp.ID] = &cp
	s.byHash[cp.TokenHash] = cp.ID
	return nil
}

func (s *InMemoryTokenStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return ErrTokenNotFound
	}
	delete(s.byHash, t.TokenHash)
	delete(s.byID, id)
	return nil
}
