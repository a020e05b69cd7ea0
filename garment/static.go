package garment

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StaticFetcher fetches product pages with a plain HTTP client. It is the
// default: fast and sufficient for server-rendered pages.
type StaticFetcher struct {
	Client *http.Client
}

func NewStaticFetcher() *StaticFetcher {
	return &StaticFetcher{
		Client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				// Several retailer CDNs reset HTTP/2 streams from non-browser
				// clients; forcing HTTP/1.1 keeps the fetch alive.
				ForceAttemptHTTP2:     false,
				TLSNextProto:          make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
	}
}

func (f *StaticFetcher) CanFetch(string) bool {
	return true
}

func (f *StaticFetcher) FetchImages(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page, status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	return extractImages(doc, base), nil
}
