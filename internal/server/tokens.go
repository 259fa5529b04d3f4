package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenNotFound covers unknown, malformed and expired tokens alike.
var ErrTokenNotFound = errors.New("token not found or expired")

type storedDataset struct {
	ds      *chart.Dataset
	expires time.Time
}

// TokenStore keeps uploaded datasets in memory under signed, expiring bearer tokens.
type TokenStore struct {
	mu      sync.Mutex
	secret  []byte
	ttl     time.Duration
	entries map[string]storedDataset
	now     func() time.Time
}

// NewTokenStore signs tokens with secret (HS256). An empty secret is replaced by
// 32 random bytes, so tokens do not survive a restart.
func NewTokenStore(secret string, ttl time.Duration) (*TokenStore, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenStore{secret: key, ttl: ttl, entries: map[string]storedDataset{}, now: time.Now}, nil
}

// Issue stores a private copy of ds and returns its access token.
func (s *TokenStore) Issue(ds *chart.Dataset) (string, error) {
	now := s.now()
	sub := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.entries[sub] = storedDataset{ds: ds.Clone(), expires: now.Add(s.ttl)}
	return token, nil
}

// Lookup verifies the token and returns a copy of its dataset that the caller may mutate.
func (s *TokenStore) Lookup(token string) (*chart.Dataset, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.Subject != "" {
			s.mu.Lock()
			delete(s.entries, claims.Subject)
			s.mu.Unlock()
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenNotFound, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[claims.Subject]
	if !ok || !s.now().Before(e.expires) {
		delete(s.entries, claims.Subject)
		return nil, ErrTokenNotFound
	}
	return e.ds.Clone(), nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *TokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *TokenStore) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored datasets, expired ones included until swept.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
