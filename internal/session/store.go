// Package session keeps the per-chat result list between a search and the
// user's selection. Each chat holds at most one session; a new search
// replaces whatever was there, and sessions expire after a TTL.
package session

import (
	"errors"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/haih88646-coder/music-bot/internal/resolver"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrBadIndex  = errors.New("selection out of range")
)

// Session is one chat's pending result list.
type Session struct {
	Query      string
	Candidates []resolver.Candidate
	CreatedAt  time.Time
}

// Store holds sessions keyed by chat id with automatic expiry.
type Store struct {
	c *gocache.Cache
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{c: gocache.New(ttl, time.Minute)}
}

// Put replaces the chat's session with a fresh one.
func (s *Store) Put(chatID int64, query string, cands []resolver.Candidate) {
	s.c.SetDefault(key(chatID), &Session{
		Query:      query,
		Candidates: cands,
		CreatedAt:  time.Now(),
	})
}

// Resolve maps a selection index back to the candidate it was offered for.
func (s *Store) Resolve(chatID int64, index int) (resolver.Candidate, error) {
	v, ok := s.c.Get(key(chatID))
	if !ok {
		return resolver.Candidate{}, ErrNoSession
	}
	sess := v.(*Session)
	if index < 0 || index >= len(sess.Candidates) {
		return resolver.Candidate{}, ErrBadIndex
	}
	return sess.Candidates[index], nil
}

// Clear drops the chat's session if present.
func (s *Store) Clear(chatID int64) {
	s.c.Delete(key(chatID))
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
