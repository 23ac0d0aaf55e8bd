package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-finance/ticpe/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, tenantID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, tenantID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, tenantID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, tenantID, "key2", []byte("value2"), time.Minute)

		if err := cache.Delete(ctx, tenantID, "key2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, tenantID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("DeletePrefix", func(t *testing.T) {
		_ = cache.Set(ctx, domain.GlobalTenantID, "ref:2024.1:fuel:a", []byte("1"), time.Minute)
		_ = cache.Set(ctx, domain.GlobalTenantID, "ref:2024.1:bench:b", []byte("2"), time.Minute)
		_ = cache.Set(ctx, domain.GlobalTenantID, "ref:2023.1:fuel:a", []byte("3"), time.Minute)
		_ = cache.Set(ctx, tenantID, "ref:2024.1:fuel:a", []byte("4"), time.Minute)

		if err := cache.DeletePrefix(ctx, domain.GlobalTenantID, "ref:2024.1:"); err != nil {
			t.Fatalf("DeletePrefix failed: %v", err)
		}

		if val, _ := cache.Get(ctx, domain.GlobalTenantID, "ref:2024.1:fuel:a"); val != nil {
			t.Error("expected version entry removed")
		}
		if val, _ := cache.Get(ctx, domain.GlobalTenantID, "ref:2024.1:bench:b"); val != nil {
			t.Error("expected version entry removed")
		}
		if val, _ := cache.Get(ctx, domain.GlobalTenantID, "ref:2023.1:fuel:a"); val == nil {
			t.Error("other version must survive")
		}
		if val, _ := cache.Get(ctx, tenantID, "ref:2024.1:fuel:a"); val == nil {
			t.Error("other tenant must survive")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c := NewLRUCache(10)
		c.now = func() time.Time { return clock }

		_ = c.Set(ctx, tenantID, "expiring", []byte("temp"), time.Minute)
		_ = c.Set(ctx, tenantID, "forever", []byte("kept"), 0)

		if val, _ := c.Get(ctx, tenantID, "expiring"); val == nil {
			t.Error("expected value before expiration")
		}

		clock = clock.Add(2 * time.Minute)

		if val, _ := c.Get(ctx, tenantID, "expiring"); val != nil {
			t.Error("expected nil after expiration")
		}
		if val, _ := c.Get(ctx, tenantID, "forever"); val == nil {
			t.Error("zero TTL entry must not expire")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, tenantID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, tenantID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, tenantID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, tenantID, "d", []byte("4"), time.Minute)

		if val, _ := smallCache.Get(ctx, tenantID, "b"); val != nil {
			t.Error("expected 'b' to be evicted")
		}
		if val, _ := smallCache.Get(ctx, tenantID, "a"); val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		tenant1 := "tenant-001"
		tenant2 := "tenant-002"

		_ = cache.Set(ctx, tenant1, "shared-key", []byte("tenant1-value"), time.Minute)
		_ = cache.Set(ctx, tenant2, "shared-key", []byte("tenant2-value"), time.Minute)

		val1, _ := cache.Get(ctx, tenant1, "shared-key")
		val2, _ := cache.Get(ctx, tenant2, "shared-key")

		if string(val1) != "tenant1-value" {
			t.Errorf("expected 'tenant1-value', got '%s'", string(val1))
		}
		if string(val2) != "tenant2-value" {
			t.Errorf("expected 'tenant2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := cache.Set(ctx, "", "key", []byte("value"), time.Minute); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := cache.Get(ctx, "", "key"); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if err := cache.DeletePrefix(ctx, "", "key"); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("CalculationCache", func(t *testing.T) {
		calc := &domain.Calculation{
			ID:     "calc-001",
			Status: domain.CalculationCompleted,
			Result: &domain.CalculationResult{
				Eligible:          true,
				EstimatedRecovery: 5496,
				Recommendations:   []string{"🎯 ÉLIGIBILITÉ CONFIRMÉE !"},
			},
		}

		if err := SetCalculation(ctx, cache, tenantID, calc, time.Minute); err != nil {
			t.Fatalf("SetCalculation failed: %v", err)
		}

		got, err := GetCalculation(ctx, cache, tenantID, "calc-001")
		if err != nil {
			t.Fatalf("GetCalculation failed: %v", err)
		}
		if got == nil || got.Result == nil || got.Result.EstimatedRecovery != 5496 {
			t.Fatalf("unexpected cached calculation: %+v", got)
		}
		if got.Result.Recommendations[0] != calc.Result.Recommendations[0] {
			t.Errorf("recommendation not preserved: %q", got.Result.Recommendations[0])
		}

		other, err := GetCalculation(ctx, cache, "tenant-002", "calc-001")
		if err != nil || other != nil {
			t.Errorf("expected miss for other tenant, got %+v, %v", other, err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, tenantID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, tenantID, "k2", []byte("v2"), time.Minute)
		_, _ = statsCache.Get(ctx, tenantID, "k1")
		_, _ = statsCache.Get(ctx, tenantID, "missing")

		stats := statsCache.Stats()
		if stats.Size != 2 {
			t.Errorf("expected size 2, got %d", stats.Size)
		}
		if stats.Capacity != 50 {
			t.Errorf("expected capacity 50, got %d", stats.Capacity)
		}
		if stats.Hits != 1 || stats.Misses != 1 {
			t.Errorf("expected 1 hit and 1 miss, got %+v", stats)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, tenantID, "k", []byte("v"), time.Minute)

		if err := testCache.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		if val, _ := testCache.Get(ctx, tenantID, "k"); val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

// flakyRemote is an L2 stand-in backed by an LRU that can be made to fail.
type flakyRemote struct {
	*LRUCache
	fail bool
}

func (f *flakyRemote) Get(ctx context.Context, tenantID, key string) ([]byte, error) {
	if f.fail {
		return nil, errors.New("remote down")
	}
	return f.LRUCache.Get(ctx, tenantID, key)
}

func (f *flakyRemote) Ping(ctx context.Context) error {
	if f.fail {
		return errors.New("remote down")
	}
	return nil
}

func TestTwoPhaseCache(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("L2HitPopulatesL1", func(t *testing.T) {
		remote := &flakyRemote{LRUCache: NewLRUCache(10)}
		c := newTwoPhase(NewLRUCache(10), remote, time.Minute)

		_ = remote.Set(ctx, tenantID, "k", []byte("v"), time.Hour)

		val, err := c.Get(ctx, tenantID, "k")
		if err != nil || string(val) != "v" {
			t.Fatalf("expected L2 hit, got %q, %v", val, err)
		}

		remote.fail = true
		val, err = c.Get(ctx, tenantID, "k")
		if err != nil || string(val) != "v" {
			t.Errorf("expected L1 hit after population, got %q, %v", val, err)
		}
	})

	t.Run("SetWritesBothLevels", func(t *testing.T) {
		local := NewLRUCache(10)
		remote := &flakyRemote{LRUCache: NewLRUCache(10)}
		c := newTwoPhase(local, remote, time.Minute)

		if err := c.Set(ctx, tenantID, "k", []byte("v"), time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if val, _ := local.Get(ctx, tenantID, "k"); val == nil {
			t.Error("expected L1 entry")
		}
		if val, _ := remote.LRUCache.Get(ctx, tenantID, "k"); val == nil {
			t.Error("expected L2 entry")
		}

		if err := c.DeletePrefix(ctx, tenantID, "k"); err != nil {
			t.Fatalf("DeletePrefix failed: %v", err)
		}
		if val, _ := c.Get(ctx, tenantID, "k"); val != nil {
			t.Error("expected entry removed from both levels")
		}
	})

	t.Run("PingReportsL2", func(t *testing.T) {
		remote := &flakyRemote{LRUCache: NewLRUCache(10), fail: true}
		c := newTwoPhase(NewLRUCache(10), remote, 0)
		if err := c.Ping(ctx); err == nil {
			t.Error("expected L2 ping failure")
		}
		if c.l1TTL != 5*time.Minute {
			t.Errorf("expected default L1 TTL, got %v", c.l1TTL)
		}
	})
}

func TestGlobEscaper(t *testing.T) {
	got := globEscaper.Replace("ticpe:*:ref:[x]?")
	want := `ticpe:\*:ref:\[x\]\?`
	if got != want {
		t.Errorf("escaped %q, want %q", got, want)
	}
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type:         "memory",
			LocalMaxSize: 100,
		}

		cache, err := New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		if _, err := New(cfg); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
