package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLRU(t *testing.T, maxSize int, ttl time.Duration, clock *fakeClock) *LRU[string] {
	t.Helper()
	c, err := NewLRU[string](Policy{MaxSize: maxSize, TTL: ttl}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLRU() error = %v", err)
	}
	return c
}

func TestLRU_GetSetDelete(t *testing.T) {
	c := newTestLRU(t, 10, time.Minute, newFakeClock())

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should return ok=false")
	}

	c.Set("key", "value")
	got, ok := c.Get("key")
	if !ok || got != "value" {
		t.Errorf("Get() = %q, %v; want %q, true", got, ok, "value")
	}

	if !c.Delete("key") {
		t.Error("Delete() of present key = false, want true")
	}
	if c.Delete("key") {
		t.Error("Delete() of absent key = true, want false")
	}
	if _, ok := c.Get("key"); ok {
		t.Error("Get after Delete should return ok=false")
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestLRU(t, 3, time.Minute, newFakeClock())

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	// Touch "a" so "b" becomes least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) should hit")
	}

	c.Set("d", "4")

	if c.Has("b") {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !c.Has(k) {
			t.Errorf("%s should still be cached", k)
		}
	}
	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestLRU_EvictionAfterNPlusOneInserts(t *testing.T) {
	const n = 5
	c := newTestLRU(t, n, time.Minute, newFakeClock())

	for i := 0; i <= n; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}

	if c.Has("k0") {
		t.Error("k0 was least recently touched and should be absent")
	}
	for i := 1; i <= n; i++ {
		if !c.Has(fmt.Sprintf("k%d", i)) {
			t.Errorf("k%d should be present", i)
		}
	}
}

func TestLRU_HasDoesNotChangeRecency(t *testing.T) {
	c := newTestLRU(t, 2, time.Minute, newFakeClock())

	c.Set("a", "1")
	c.Set("b", "2")

	// Has must not promote "a".
	if !c.Has("a") {
		t.Fatal("Has(a) = false")
	}
	c.Set("c", "3")

	if c.Has("a") {
		t.Error("a should have been evicted; Has must not refresh recency")
	}
	if !c.Has("b") {
		t.Error("b should still be cached")
	}
}

func TestLRU_OverwriteKeepsSize(t *testing.T) {
	clock := newFakeClock()
	c := newTestLRU(t, 2, time.Minute, clock)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "updated")

	if got := c.Len(); got != 2 {
		t.Errorf("Len() = %d after overwrite, want 2", got)
	}
	if !c.Has("b") {
		t.Error("overwriting a key at capacity must not evict another entry")
	}
	if got, _ := c.Get("a"); got != "updated" {
		t.Errorf("Get(a) = %q, want %q", got, "updated")
	}
}

func TestLRU_OverwriteResetsAge(t *testing.T) {
	clock := newFakeClock()
	c := newTestLRU(t, 2, time.Minute, clock)

	c.Set("a", "1")
	clock.Advance(50 * time.Second)
	c.Set("a", "2")
	clock.Advance(50 * time.Second)

	if _, ok := c.Get("a"); !ok {
		t.Error("overwrite should reset the entry's timestamp")
	}
}

func TestLRU_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := newTestLRU(t, 10, time.Second, clock)

	c.Set("k", "v")

	clock.Advance(time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry exactly at ttl should still be visible")
	}

	clock.Advance(time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Get after ttl should return ok=false")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on access, Len() = %d", c.Len())
	}
}

func TestLRU_PruneRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	c := newTestLRU(t, 10, time.Second, clock)

	c.Set("old1", "v")
	c.Set("old2", "v")
	clock.Advance(2 * time.Second)
	c.Set("fresh", "v")

	if got := c.Prune(); got != 2 {
		t.Errorf("Prune() = %d, want 2", got)
	}
	if !c.Has("fresh") {
		t.Error("fresh entry should survive Prune")
	}
	if got := c.Stats().Expired; got != 2 {
		t.Errorf("Stats().Expired = %d, want 2", got)
	}
}

func TestLRU_ClearAndStats(t *testing.T) {
	c := newTestLRU(t, 4, time.Minute, newFakeClock())

	c.Set("a", "1")
	c.Get("a")
	c.Get("b")
	c.Clear()

	stats := c.Stats()
	if stats.Size != 0 {
		t.Errorf("Size = %d after Clear, want 0", stats.Size)
	}
	if stats.MaxSize != 4 || stats.TTL != time.Minute {
		t.Errorf("Stats() = %+v, want MaxSize=4 TTL=1m", stats)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Hits/Misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
}

func TestLRU_EvictHook(t *testing.T) {
	clock := newFakeClock()
	var reasons []EvictReason
	c, err := NewLRU[int](Policy{MaxSize: 1, TTL: time.Second},
		WithClock(clock.Now),
		WithEvictHook(func(_ string, r EvictReason) { reasons = append(reasons, r) }),
	)
	if err != nil {
		t.Fatalf("NewLRU() error = %v", err)
	}

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Second)
	c.Get("b")

	want := []EvictReason{EvictCapacity, EvictExpired}
	if len(reasons) != len(want) {
		t.Fatalf("reasons = %v, want %v", reasons, want)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Errorf("reasons[%d] = %q, want %q", i, reasons[i], want[i])
		}
	}
}

func TestNewLRU_InvalidPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"zero size", Policy{MaxSize: 0, TTL: time.Minute}},
		{"negative size", Policy{MaxSize: -1, TTL: time.Minute}},
		{"negative ttl", Policy{MaxSize: 1, TTL: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLRU[string](tt.policy); err == nil {
				t.Error("NewLRU() error = nil, want ErrInvalidConfig")
			}
		})
	}
}

func TestMustNewLRU_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNewLRU() with invalid policy should panic")
		}
	}()
	MustNewLRU[string](Policy{})
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c, err := NewLRU[[]byte](Policy{MaxSize: 16, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewLRU() error = %v", err)
	}

	const numGoroutines = 50
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				key := fmt.Sprintf("k%d", (id+j)%32)
				switch j % 4 {
				case 0:
					c.Set(key, []byte("v"))
				case 1:
					c.Get(key)
				case 2:
					c.Has(key)
				case 3:
					c.Prune()
				}
			}
		}(i)
	}
	wg.Wait()

	if got := c.Len(); got > 16 {
		t.Errorf("Len() = %d, must never exceed MaxSize", got)
	}
}
