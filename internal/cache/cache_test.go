package cache

import (
	"context"
	"testing"
	"time"

	"github.com/clearskin/accord/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	clinicID := "clinic-001"

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, clinicID, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, clinicID, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, clinicID, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, clinicID, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, clinicID, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, clinicID, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, clinicID, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, clinicID, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, clinicID, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, clinicID, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, clinicID, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, clinicID, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, clinicID, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, clinicID, "d", []byte("4"), time.Minute)

		// 'b' should be evicted
		val, _ := smallCache.Get(ctx, clinicID, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		// 'a' should still be there
		val, _ = smallCache.Get(ctx, clinicID, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("ClinicIsolation", func(t *testing.T) {
		clinic1 := "clinic-001"
		clinic2 := "clinic-002"

		_ = cache.Set(ctx, clinic1, "shared-key", []byte("clinic1-value"), time.Minute)
		_ = cache.Set(ctx, clinic2, "shared-key", []byte("clinic2-value"), time.Minute)

		val1, _ := cache.Get(ctx, clinic1, "shared-key")
		val2, _ := cache.Get(ctx, clinic2, "shared-key")

		if string(val1) != "clinic1-value" {
			t.Errorf("expected 'clinic1-value', got '%s'", string(val1))
		}
		if string(val2) != "clinic2-value" {
			t.Errorf("expected 'clinic2-value', got '%s'", string(val2))
		}
	})

	t.Run("RequiresClinicID", func(t *testing.T) {
		err := cache.Set(ctx, "", "key", []byte("value"), time.Minute)
		if err == nil {
			t.Error("expected error for empty clinicID")
		}

		_, err = cache.Get(ctx, "", "key")
		if err == nil {
			t.Error("expected error for empty clinicID")
		}
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		window := 100 * time.Millisecond

		count1, err := cache.IncrementCounter(ctx, clinicID, "runs", window)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count1 != 1 {
			t.Errorf("expected count 1, got %d", count1)
		}

		count2, _ := cache.IncrementCounter(ctx, clinicID, "runs", window)
		if count2 != 2 {
			t.Errorf("expected count 2, got %d", count2)
		}

		// Wait for window to expire
		time.Sleep(150 * time.Millisecond)

		count3, _ := cache.IncrementCounter(ctx, clinicID, "runs", window)
		if count3 != 1 {
			t.Errorf("expected count 1 after window reset, got %d", count3)
		}
	})

	t.Run("SessionCache", func(t *testing.T) {
		snap := &domain.SessionSnapshot{
			MachineBands: domain.Readings{
				"moisture": domain.BandRed,
			},
			SelfBands: domain.Readings{
				"moisture": domain.BandGreen,
			},
			Profile:   domain.Profile{Age: 42},
			Timestamp: "2026-09-01T10:00:00Z",
		}

		err := cache.SetSession(ctx, clinicID, "sess-001", snap, time.Minute)
		if err != nil {
			t.Fatalf("SetSession failed: %v", err)
		}

		retrieved, err := cache.GetSession(ctx, clinicID, "sess-001")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}

		if retrieved.MachineBands["moisture"] != domain.BandRed {
			t.Errorf("expected machine moisture red, got %s", retrieved.MachineBands["moisture"])
		}
		if retrieved.Profile.Age != 42 {
			t.Errorf("expected Age 42, got %d", retrieved.Profile.Age)
		}
	})

	t.Run("SessionTTL", func(t *testing.T) {
		snap := &domain.SessionSnapshot{
			MachineBands: domain.Readings{"sebum": domain.BandYellow},
		}

		_ = cache.SetSession(ctx, clinicID, "sess-exp", snap, 10*time.Millisecond)

		retrieved, _ := cache.GetSession(ctx, clinicID, "sess-exp")
		if retrieved == nil {
			t.Error("expected snapshot before expiration")
		}

		time.Sleep(20 * time.Millisecond)

		retrieved, err := cache.GetSession(ctx, clinicID, "sess-exp")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if retrieved != nil {
			t.Error("expected nil snapshot after expiration")
		}
	})

	t.Run("SessionRequiresClinicID", func(t *testing.T) {
		if _, err := cache.GetSession(ctx, "", "sess-001"); err == nil {
			t.Error("expected error for empty clinicID")
		}
		if err := cache.SetSession(ctx, "", "sess-001", &domain.SessionSnapshot{}, time.Minute); err == nil {
			t.Error("expected error for empty clinicID")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, clinicID, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, clinicID, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, clinicID, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		// Cache should be empty after close
		val, _ := testCache.Get(ctx, clinicID, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
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

		_, ok := cache.(*LRUCache)
		if !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		cfg := domain.CacheConfig{
			Type: "memcached",
		}

		_, err := New(cfg)
		if err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
