package cache

import (
	"testing"
	"time"
)

func TestGetReturnsStoredValue(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 42, 8)
	v, ok := c.Get("a")
	if !ok || v.(int) != 42 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
}

func TestExpiryOnGet(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "v", 1)

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("entry expired before its TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry survived past its TTL")
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Fatalf("evictions = %d, want 1", stats.Evictions)
	}
	if stats.Entries != 0 {
		t.Fatalf("expired entry still counted: %d", stats.Entries)
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := New(0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("a", "v", 1)
	now = now.Add(1000 * time.Hour)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("zero TTL entry expired")
	}
}

func TestStatsCounters(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", "v", 10)
	c.Set("b", "w", 20)
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("hits/misses = %d/%d", s.Hits, s.Misses)
	}
	if s.Entries != 2 || s.SizeEstimate != 30 {
		t.Fatalf("entries/size = %d/%d", s.Entries, s.SizeEstimate)
	}
}

func TestKeyIsStableAcrossMapOrder(t *testing.T) {
	a := Key("enrich", map[string]any{"threshold": 0.5, "column": "price", "domains": []string{"low", "high"}})
	b := Key("enrich", map[string]any{"domains": []string{"low", "high"}, "column": "price", "threshold": 0.5})
	if a != b {
		t.Fatalf("same parameters hashed differently:\n%s\n%s", a, b)
	}
}

func TestKeyDistinguishesParameters(t *testing.T) {
	a := Key("enrich", map[string]any{"threshold": 0.5})
	b := Key("enrich", map[string]any{"threshold": 0.6})
	if a == b {
		t.Fatalf("different parameters produced the same key")
	}
	c := Key("unfold", map[string]any{"threshold": 0.5})
	if a == c {
		t.Fatalf("different operations produced the same key")
	}
}
