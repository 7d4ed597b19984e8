package scraper

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

// HostMemory remembers hosts whose catalogs are not in the static markup,
// so auto mode goes straight to the browser for them. Entries expire after
// the TTL. A nil *HostMemory remembers nothing.
type HostMemory struct {
	store sync.Map // host (string) -> expiry (time.Time)
	ttl   time.Duration
	now   func() time.Time
}

// NewHostMemory creates a HostMemory with the given TTL.
func NewHostMemory(ttl time.Duration) *HostMemory {
	return &HostMemory{ttl: ttl, now: time.Now}
}

// NeedsBrowser reports whether the static fetch recently failed for host.
func (m *HostMemory) NeedsBrowser(host string) bool {
	if m == nil || host == "" {
		return false
	}
	val, ok := m.store.Load(host)
	if !ok {
		return false
	}
	if m.now().After(val.(time.Time)) {
		m.store.Delete(host)
		return false
	}
	return true
}

// MarkBrowser records that host needs the browser.
func (m *HostMemory) MarkBrowser(host string) {
	if m == nil || host == "" {
		return
	}
	m.store.Store(host, m.now().Add(m.ttl))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
