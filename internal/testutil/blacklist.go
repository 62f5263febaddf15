package testutil

import (
	"context"
	"sync"
	"time"
)

// Blacklist хранит отозванные токены в памяти вместо Redis
type Blacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	Err    error
}

func NewBlacklist() *Blacklist {
	return &Blacklist{tokens: make(map[string]time.Time)}
}

func (b *Blacklist) Add(_ context.Context, token string, ttl time.Duration) error {
	if b.Err != nil {
		return b.Err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = time.Now().Add(ttl)
	return nil
}

func (b *Blacklist) Contains(_ context.Context, token string) (bool, error) {
	if b.Err != nil {
		return false, b.Err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.tokens[token]
	return ok && time.Now().Before(exp), nil
}
