package ai

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestInMemoryBudget_NoBudgetSet(t *testing.T) {
	b := NewInMemoryBudget(0)

	ok, err := b.Check(t.Context(), "author-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (no budget means unlimited)")
	}
}

func TestInMemoryBudget_WithinBudget(t *testing.T) {
	ctx := t.Context()
	b := NewInMemoryBudget(0)
	b.SetBudget("author-1", 1000)

	if err := b.Record(ctx, "author-1", 500); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(ctx, "author-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (500 < 1000)")
	}
}

func TestInMemoryBudget_ExactBudget(t *testing.T) {
	ctx := t.Context()
	b := NewInMemoryBudget(100)

	if err := b.Record(ctx, "author-1", 100); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(ctx, "author-1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("Check() = true, want false (100 >= 100, budget exhausted)")
	}
}

func TestInMemoryBudget_DefaultAndOverride(t *testing.T) {
	ctx := t.Context()
	b := NewInMemoryBudget(100)
	b.SetBudget("author-2", 1000)

	for _, tokens := range []int{100, 200, 300} {
		if err := b.Record(ctx, "author-2", tokens); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	used, limit, err := b.Usage(ctx, "author-2")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 600 || limit != 1000 {
		t.Errorf("Usage() = (%d, %d), want (600, 1000)", used, limit)
	}

	_, limit, _ = b.Usage(ctx, "author-3")
	if limit != 100 {
		t.Errorf("default limit = %d, want 100", limit)
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget(0)

	if err := b.Record(t.Context(), "author-1", -10); err == nil {
		t.Fatal("Record() should return error for negative tokens")
	}
}

func TestInMemoryBudget_IsolatedScopes(t *testing.T) {
	ctx := t.Context()
	b := NewInMemoryBudget(100)

	b.Record(ctx, "author-1", 150)
	b.Record(ctx, "author-2", 50)

	ok1, _ := b.Check(ctx, "author-1")
	ok2, _ := b.Check(ctx, "author-2")

	if ok1 {
		t.Error("author-1 should be over budget (150 >= 100)")
	}
	if !ok2 {
		t.Error("author-2 should be within budget (50 < 100)")
	}
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	endpoint, err := c.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatalf("PortEndpoint() error = %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBudget(t *testing.T) {
	client := startRedis(t)
	ctx := t.Context()
	b := NewRedisBudget(client, 100, time.Hour)

	ok, err := b.Check(ctx, "author-1")
	if err != nil || !ok {
		t.Fatalf("Check() on fresh scope = (%v, %v), want (true, nil)", ok, err)
	}

	if err := b.Record(ctx, "author-1", 60); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := b.Record(ctx, "author-1", 40); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	used, limit, err := b.Usage(ctx, "author-1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 100 || limit != 100 {
		t.Errorf("Usage() = (%d, %d), want (100, 100)", used, limit)
	}

	ok, _ = b.Check(ctx, "author-1")
	if ok {
		t.Error("Check() = true, want false after reaching the limit")
	}

	ttl, err := client.TTL(ctx, budgetKeyPrefix+"author-1").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want within (0, 1h]", ttl)
	}
}

func TestRedisBudget_Unlimited(t *testing.T) {
	b := NewRedisBudget(nil, 0, 0)

	ok, err := b.Check(t.Context(), "anyone")
	if err != nil || !ok {
		t.Errorf("Check() = (%v, %v), want (true, nil) when limit is zero", ok, err)
	}
}
