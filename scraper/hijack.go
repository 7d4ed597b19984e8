package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerDomains are analytics and ad hosts seen on retail catalogs.
// Blocking them shortens the scroll waits without affecting the listing.
var trackerDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"facebook.net":          {},
	"criteo.com":            {},
	"criteo.net":            {},
	"hotjar.com":            {},
	"mc.yandex.ru":          {},
	"an.yandex.ru":          {},
	"yabs.yandex.ru":        {},
	"top-fwz1.mail.ru":      {},
	"ad.mail.ru":            {},
	"mytarget.ru":           {},
	"adriver.ru":            {},
	"adfox.ru":              {},
	"tns-counter.ru":        {},
	"mediator.media":        {},
	"flocktory.com":         {},
	"gdeslon.ru":            {},
	"admitad.com":           {},
	"retailrocket.ru":       {},
	"mindbox.ru":            {},
	"sberads.ru":            {},
	"digitaltarget.ru":      {},
}

// resourceFilter decides which requests a harvest lets through.
type resourceFilter struct {
	types        map[proto.NetworkResourceType]struct{}
	blockTracker bool
}

func newResourceFilter(blockedTypes []string, blockTrackers bool) resourceFilter {
	f := resourceFilter{
		types:        make(map[proto.NetworkResourceType]struct{}, len(blockedTypes)),
		blockTracker: blockTrackers,
	}
	for _, name := range blockedTypes {
		if rt, ok := resourceTypes[name]; ok {
			f.types[rt] = struct{}{}
		}
	}
	return f
}

func (f resourceFilter) empty() bool {
	return len(f.types) == 0 && !f.blockTracker
}

// blocks reports whether a request of the given type to rawURL is dropped.
func (f resourceFilter) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := f.types[rt]; ok {
		return true
	}
	if !f.blockTracker {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return isTrackerHost(u.Hostname())
}

// isTrackerHost checks host and each of its parent domains.
func isTrackerHost(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// setupHijack mounts a request interceptor enforcing f on the page.
// It must run before navigation. Returns nil when nothing is blocked;
// otherwise the caller stops the router when the harvest ends.
func setupHijack(page *rod.Page, f resourceFilter) *rod.HijackRouter {
	if f.empty() {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if f.blocks(h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()

	return router
}
