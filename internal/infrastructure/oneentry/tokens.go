package oneentry

import "sync"

// TokenPair is the credential pair issued by the login and refresh endpoints
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenStore holds the current token pair. It is owned by a single Client
// and only changes through Set.
type TokenStore struct {
	mu   sync.RWMutex
	pair TokenPair
}

// Get returns a copy of the current pair
func (s *TokenStore) Get() TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

// Set replaces both tokens at once
func (s *TokenStore) Set(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
}
