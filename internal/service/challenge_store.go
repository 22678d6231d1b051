package service

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"duemate/internal/domain"
)

// ChallengeStore guarda como máximo un challenge vivo por identificador.
type ChallengeStore interface {
	// Put reemplaza incondicionalmente el challenge del identificador.
	Put(ctx context.Context, identifier string, ch domain.Challenge) error
	// Get es una consulta pura, sin efectos.
	Get(ctx context.Context, identifier string) (domain.Challenge, bool, error)
	// Remove es idempotente.
	Remove(ctx context.Context, identifier string) error
	// Consume elimina el challenge solo si sigue siendo ch. Devuelve true
	// únicamente al llamador que lo eliminó.
	Consume(ctx context.Context, identifier string, ch domain.Challenge) (bool, error)
}

const challengeShardCount = 32

type challengeShard struct {
	mu    sync.Mutex
	items map[string]domain.Challenge
}

// MemoryChallengeStore es un ChallengeStore en proceso, particionado por shards
// para que identificadores distintos no compitan por el mismo lock.
type MemoryChallengeStore struct {
	shards [challengeShardCount]*challengeShard
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	s := &MemoryChallengeStore{}
	for i := range s.shards {
		s.shards[i] = &challengeShard{items: make(map[string]domain.Challenge)}
	}
	return s
}

func (s *MemoryChallengeStore) shard(identifier string) *challengeShard {
	return s.shards[xxhash.Sum64String(identifier)%challengeShardCount]
}

func (s *MemoryChallengeStore) Put(_ context.Context, identifier string, ch domain.Challenge) error {
	sh := s.shard(identifier)
	sh.mu.Lock()
	sh.items[identifier] = ch
	sh.mu.Unlock()
	return nil
}

func (s *MemoryChallengeStore) Get(_ context.Context, identifier string) (domain.Challenge, bool, error) {
	sh := s.shard(identifier)
	sh.mu.Lock()
	ch, ok := sh.items[identifier]
	sh.mu.Unlock()
	return ch, ok, nil
}

func (s *MemoryChallengeStore) Remove(_ context.Context, identifier string) error {
	sh := s.shard(identifier)
	sh.mu.Lock()
	delete(sh.items, identifier)
	sh.mu.Unlock()
	return nil
}

func (s *MemoryChallengeStore) Consume(_ context.Context, identifier string, ch domain.Challenge) (bool, error) {
	sh := s.shard(identifier)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	current, ok := sh.items[identifier]
	if !ok || !current.Same(ch) {
		return false, nil
	}
	delete(sh.items, identifier)
	return true, nil
}

// Purge elimina challenges emitidos antes de cutoff y devuelve cuántos borró.
func (s *MemoryChallengeStore) Purge(cutoff time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, ch := range sh.items {
			if ch.IssuedAt.Before(cutoff) {
				delete(sh.items, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len devuelve la cantidad de challenges vivos.
func (s *MemoryChallengeStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.items)
		sh.mu.Unlock()
	}
	return n
}
