package cache

import (
	"context"
	"testing"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, "expiring")
		if val == nil {
			t.Error("expected value before expiration")
		}

		// Wait for expiration
		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, "expiring")
		if val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("ZeroTTLNeverExpires", func(t *testing.T) {
		_ = cache.Set(ctx, "forever", []byte("kept"), 0)

		time.Sleep(20 * time.Millisecond)

		val, _ := cache.Get(ctx, "forever")
		if string(val) != "kept" {
			t.Error("expected zero-TTL entry to survive")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		smallCache := NewLRUCache(3)

		_ = smallCache.Set(ctx, "a", []byte("1"), time.Minute)
		_ = smallCache.Set(ctx, "b", []byte("2"), time.Minute)
		_ = smallCache.Set(ctx, "c", []byte("3"), time.Minute)

		// Access 'a' to make it recently used
		_, _ = smallCache.Get(ctx, "a")

		// Add 'd' - should evict 'b' (oldest accessed)
		_ = smallCache.Set(ctx, "d", []byte("4"), time.Minute)

		val, _ := smallCache.Get(ctx, "b")
		if val != nil {
			t.Error("expected 'b' to be evicted")
		}

		val, _ = smallCache.Get(ctx, "a")
		if val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("VerdictRoundTrip", func(t *testing.T) {
		verdict := &domain.RiskVerdict{
			RiskLevel:     domain.RiskDangerous,
			IdentityScore: 90,
			Warning:       "high risk",
			Details: domain.VerdictDetails{
				Carrier: "Viettel",
				Signs:   []string{"spoofed prefix"},
			},
			Recommendations: []string{"Do not answer"},
		}

		err := cache.SetVerdict(ctx, "0241234567", verdict, 0)
		if err != nil {
			t.Fatalf("SetVerdict failed: %v", err)
		}

		retrieved, err := cache.GetVerdict(ctx, "0241234567")
		if err != nil {
			t.Fatalf("GetVerdict failed: %v", err)
		}
		if retrieved == nil {
			t.Fatal("expected cached verdict")
		}

		if retrieved.RiskLevel != verdict.RiskLevel {
			t.Errorf("expected RiskLevel %s, got %s", verdict.RiskLevel, retrieved.RiskLevel)
		}
		if retrieved.IdentityScore != verdict.IdentityScore {
			t.Errorf("expected IdentityScore %d, got %d", verdict.IdentityScore, retrieved.IdentityScore)
		}
		if retrieved.Details.Carrier != "Viettel" {
			t.Errorf("expected Carrier Viettel, got %s", retrieved.Details.Carrier)
		}
	})

	t.Run("VerdictExcludesUserReports", func(t *testing.T) {
		verdict := &domain.RiskVerdict{
			RiskLevel:     domain.RiskWarning,
			IdentityScore: 70,
			UserReports: []*domain.CommunityReport{
				{ID: "rep-001", Target: "0909123456", Status: domain.ReportConfirmed},
			},
		}

		_ = cache.SetVerdict(ctx, "0909123456", verdict, 0)

		retrieved, err := cache.GetVerdict(ctx, "0909123456")
		if err != nil {
			t.Fatalf("GetVerdict failed: %v", err)
		}

		if retrieved.UserReports != nil {
			t.Error("expected cached verdict to drop userReports")
		}
	})

	t.Run("VerdictMiss", func(t *testing.T) {
		v, err := cache.GetVerdict(ctx, "never-assessed")
		if err != nil {
			t.Fatalf("GetVerdict failed: %v", err)
		}
		if v != nil {
			t.Error("expected nil for verdict miss")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, "k2", []byte("v2"), time.Minute)

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
		_ = testCache.Set(ctx, "k", []byte("v"), time.Minute)

		err := testCache.Close()
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}

		val, _ := testCache.Get(ctx, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestVerdictKey(t *testing.T) {
	if VerdictKey("0909123456") != "verdict:0909123456" {
		t.Errorf("unexpected verdict key: %s", VerdictKey("0909123456"))
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
