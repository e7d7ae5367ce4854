package httpengine

import (
	"context"
	"net"
	"sync"
	"time"
)

const (
	dnsTTL      = 5 * time.Minute
	dnsCapacity = 64
)

// dnsEntry is the Go rendering of the spec's DnsEntry: resolved endpoints for
// a host plus an absolute expiry.
type dnsEntry struct {
	addrs     []string
	expiresAt time.Time
}

// dnsCache is a process-global, mutex-guarded cache of resolved hostnames.
// It never performs I/O while holding its lock — resolution happens outside
// the critical section and results are written back afterward.
type dnsCache struct {
	mu      sync.Mutex
	entries map[string]dnsEntry
	nowFn   func() time.Time
}

var globalDNSCache = newDNSCache()

func newDNSCache() *dnsCache {
	return &dnsCache{entries: make(map[string]dnsEntry), nowFn: time.Now}
}

// lookup returns a cached, unexpired address set for host, or ("", false).
func (c *dnsCache) lookup(host string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[host]
	if !ok || c.nowFn().After(e.expiresAt) {
		return nil, false
	}
	return e.addrs, true
}

// store records a resolved address set for host, evicting if at capacity.
func (c *dnsCache) store(host string, addrs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[host]; !exists && len(c.entries) >= dnsCapacity {
		c.evictOneLocked()
	}
	c.entries[host] = dnsEntry{addrs: addrs, expiresAt: c.nowFn().Add(dnsTTL)}
}

// invalidate drops a host's entry, used when a connection using a cached
// address fails at the transport level.
func (c *dnsCache) invalidate(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, host)
}

// evictOneLocked removes the first expired entry found, or else the oldest
// by expiry time. Must be called with mu held.
func (c *dnsCache) evictOneLocked() {
	now := c.nowFn()
	var oldestHost string
	var oldestExpiry time.Time
	first := true
	for h, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, h)
			return
		}
		if first || e.expiresAt.Before(oldestExpiry) {
			oldestHost, oldestExpiry = h, e.expiresAt
			first = false
		}
	}
	if oldestHost != "" {
		delete(c.entries, oldestHost)
	}
}

// cachingDialContext wraps a base DialContext so that the resolved address
// is looked up from / stored into the shared DNS cache, and invalidated on
// dial failure so a later attempt re-resolves instead of reusing a bad
// entry.
func cachingDialContext(base func(ctx context.Context, network, addr string) (net.Conn, error), cache *dnsCache, resolver *net.Resolver) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return base(ctx, network, addr)
		}
		if net.ParseIP(host) != nil {
			// Already an IP literal; nothing to cache.
			return base(ctx, network, addr)
		}

		addrs, ok := cache.lookup(host)
		if !ok {
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil || len(ips) == 0 {
				return base(ctx, network, addr)
			}
			cache.store(host, ips)
			addrs = ips
		}

		var lastErr error
		for _, ip := range addrs {
			conn, err := base(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		cache.invalidate(host)
		if lastErr != nil {
			return nil, lastErr
		}
		return base(ctx, network, addr)
	}
}
