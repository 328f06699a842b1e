package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haih88646-coder/music-bot/internal/resolver"
)

func sample(n int) []resolver.Candidate {
	out := make([]resolver.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, resolver.Candidate{ID: string(rune('a' + i)), Title: "t"})
	}
	return out
}

func TestResolve(t *testing.T) {
	s := NewStore(time.Minute)
	s.Put(1, "q", sample(3))

	got, err := s.Resolve(1, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	got, err = s.Resolve(1, 2)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)
}

func TestResolveBadIndex(t *testing.T) {
	s := NewStore(time.Minute)
	s.Put(1, "q", sample(3))

	_, err := s.Resolve(1, 3)
	assert.ErrorIs(t, err, ErrBadIndex)
	_, err = s.Resolve(1, -1)
	assert.ErrorIs(t, err, ErrBadIndex)
}

func TestResolveNoSession(t *testing.T) {
	s := NewStore(time.Minute)
	_, err := s.Resolve(42, 0)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestPutReplaces(t *testing.T) {
	s := NewStore(time.Minute)
	s.Put(1, "first", sample(5))
	s.Put(1, "second", sample(2))

	_, err := s.Resolve(1, 4)
	assert.ErrorIs(t, err, ErrBadIndex)

	got, err := s.Resolve(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
}

func TestChatsIndependent(t *testing.T) {
	s := NewStore(time.Minute)
	s.Put(1, "one", sample(1))
	s.Put(2, "two", sample(2))

	s.Clear(1)
	_, err := s.Resolve(1, 0)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.Resolve(2, 1)
	assert.NoError(t, err)
}

func TestExpiry(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	s.Put(1, "q", sample(1))
	time.Sleep(40 * time.Millisecond)
	_, err := s.Resolve(1, 0)
	assert.ErrorIs(t, err, ErrNoSession)
}
