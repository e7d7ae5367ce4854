package httpengine

import (
	"testing"
	"time"
)

func TestDNSCacheTTLExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newDNSCache()
	c.nowFn = func() time.Time { return now }

	c.store("example.com", []string{"1.2.3.4"})
	if _, ok := c.lookup("example.com"); !ok {
		t.Fatal("expected cache hit immediately after store")
	}

	now = now.Add(dnsTTL + time.Second)
	if _, ok := c.lookup("example.com"); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestDNSCacheCapacityEviction(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newDNSCache()
	c.nowFn = func() time.Time { return now }

	for i := 0; i < dnsCapacity+5; i++ {
		host := "host" + string(rune('a'+i%26)) + string(rune('0'+i/26))
		c.store(host, []string{"1.1.1.1"})
		now = now.Add(time.Millisecond)
	}
	if len(c.entries) > dnsCapacity {
		t.Fatalf("cache grew past capacity: %d > %d", len(c.entries), dnsCapacity)
	}
}

func TestDNSCacheInvalidate(t *testing.T) {
	c := newDNSCache()
	c.store("example.com", []string{"1.2.3.4"})
	c.invalidate("example.com")
	if _, ok := c.lookup("example.com"); ok {
		t.Fatal("expected cache miss after invalidate")
	}
}
