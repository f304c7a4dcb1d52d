package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetChecker checks and records token usage against per-scope budgets. A
// scope is usually an author ID, or "global" when requests are anonymous.
type BudgetChecker interface {
	// Check returns true if the scope has budget remaining.
	Check(ctx context.Context, scope string) (bool, error)
	// Record adds token usage to the scope.
	Record(ctx context.Context, scope string, tokens int) error
	// Usage returns current usage and the limit for the scope. A limit of
	// zero means unlimited.
	Usage(ctx context.Context, scope string) (used int64, limit int64, err error)
}

// InMemoryBudget is a process-local budget tracker for development and tests.
type InMemoryBudget struct {
	mu           sync.RWMutex
	defaultLimit int64
	budgets      map[string]int64 // scope -> budget limit
	usage        map[string]int64 // scope -> tokens used
}

// NewInMemoryBudget creates a budget tracker. defaultLimit applies to scopes
// without an explicit budget; zero means unlimited.
func NewInMemoryBudget(defaultLimit int64) *InMemoryBudget {
	return &InMemoryBudget{
		defaultLimit: defaultLimit,
		budgets:      make(map[string]int64),
		usage:        make(map[string]int64),
	}
}

// SetBudget sets the token budget for a scope.
func (b *InMemoryBudget) SetBudget(scope string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[scope] = tokens
}

func (b *InMemoryBudget) limit(scope string) int64 {
	if l, ok := b.budgets[scope]; ok {
		return l
	}
	return b.defaultLimit
}

func (b *InMemoryBudget) Check(_ context.Context, scope string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limit(scope)
	if limit <= 0 {
		return true, nil
	}
	return b.usage[scope] < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, scope string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[scope] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, scope string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usage[scope], b.limit(scope), nil
}

const budgetKeyPrefix = "tos:budget:"

// RedisBudget tracks usage in Redis or Dragonfly so that several server
// instances share one budget. Counters expire after the window, which resets
// the budget; a zero window keeps counters forever.
type RedisBudget struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
}

// NewRedisBudget creates a shared budget with the same limit for every scope.
func NewRedisBudget(client redis.UniversalClient, limit int64, window time.Duration) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, window: window}
}

func (b *RedisBudget) used(ctx context.Context, scope string) (int64, error) {
	v, err := b.client.Get(ctx, budgetKeyPrefix+scope).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading budget: %w", err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing budget counter %q: %w", v, err)
	}
	return n, nil
}

func (b *RedisBudget) Check(ctx context.Context, scope string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.used(ctx, scope)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, scope string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := budgetKeyPrefix + scope
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, key, int64(tokens))
		if b.window > 0 {
			pipe.ExpireNX(ctx, key, b.window)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording budget: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, scope string) (int64, int64, error) {
	used, err := b.used(ctx, scope)
	if err != nil {
		return 0, 0, err
	}
	return used, b.limit, nil
}
