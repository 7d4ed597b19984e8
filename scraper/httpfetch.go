package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	tls2 "github.com/refraction-networking/utls"
	"github.com/use-agent/cataloger/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodyBytes caps a static fetch.
const maxBodyBytes = 10 << 20

// HTTPFetcher harvests server-rendered catalogs without a browser, using a
// Chrome TLS fingerprint (utls). No JavaScript runs, so nothing that loads
// on scroll is captured.
type HTTPFetcher struct {
	proxy          string
	acceptLanguage string
}

// NewHTTPFetcher creates a static fetcher. proxy may be empty.
func NewHTTPFetcher(proxy, acceptLanguage string) *HTTPFetcher {
	return &HTTPFetcher{proxy: proxy, acceptLanguage: acceptLanguage}
}

// Harvest implements Harvester. The body is decoded to UTF-8 using the
// Content-Type header and <meta> charset, and req.ReadySelector must
// match the static markup.
func (f *HTTPFetcher) Harvest(ctx context.Context, req models.HarvestRequest) (models.RenderedPage, error) {
	start := time.Now()
	if req.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.StepTimeout)
		defer cancel()
	}

	body, finalURL, err := f.fetch(ctx, req.URL)
	if err != nil {
		slog.Error("static fetch failed", "url", req.URL, "error", err)
		return models.RenderedPage{}, categorizeError(err, "static fetch failed")
	}

	if req.ReadySelector != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil || doc.Find(req.ReadySelector).Length() == 0 {
			slog.Error("static fetch: products not in server markup",
				"url", finalURL,
				"selector", req.ReadySelector,
				"title", extractTitle([]byte(body)),
			)
			return models.RenderedPage{}, models.NewHarvestError(
				models.ErrCodeReadyTimeout,
				fmt.Sprintf("no element matched %q in static markup", req.ReadySelector),
				err,
			)
		}
	}

	slog.Info("static fetch complete",
		"url", finalURL,
		"bytes", len(body),
		"elapsed", time.Since(start).String(),
	)
	return models.RenderedPage{
		HTML:        body,
		FinalURL:    finalURL,
		Outcome:     models.OutcomeSettled,
		FetchMethod: models.FetchModeHTTP,
	}, nil
}

// fetch retrieves targetURL and returns the UTF-8 body and the final URL
// after redirects.
func (f *HTTPFetcher) fetch(ctx context.Context, targetURL string) (string, string, error) {
	proxy := f.proxy
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr)
		},
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.acceptLanguage != "" {
		req.Header.Set("Accept-Language", f.acceptLanguage)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("httpfetch: read body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return "", "", fmt.Errorf("httpfetch: body of %s exceeds %d bytes", targetURL, maxBodyBytes)
	}

	utf8Body, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", "", fmt.Errorf("httpfetch: decode body: %w", err)
	}
	return utf8Body, resp.Request.URL.String(), nil
}

// decodeBody converts raw to UTF-8, sniffing the encoding the way a
// browser would.
func decodeBody(raw []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// extractTitle extracts the <title> content from raw HTML bytes.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
