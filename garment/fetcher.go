// Package garment imports clothing imagery from retailer product pages, as
// an alternative to uploading a garment photo directly.
package garment

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher extracts candidate garment image URLs from a product page.
type Fetcher interface {
	// CanFetch checks if the fetcher can handle the given URL
	CanFetch(url string) bool
	// FetchImages returns garment image URLs found on the page, best first
	FetchImages(ctx context.Context, url string) ([]string, error)
}

// ImportImages resolves the URL (following shorteners) and runs the first
// capable fetcher. The static fetcher handles most pages; JS-heavy retailers
// fall through to the headless-browser fetcher.
func ImportImages(ctx context.Context, rawURL string) ([]string, error) {
	resolved, err := ResolveShortenedURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("error resolving url: %w", err)
	}

	fetchers := []Fetcher{
		NewRenderedFetcher(),
		NewStaticFetcher(),
	}
	for _, f := range fetchers {
		if !f.CanFetch(resolved) {
			continue
		}
		images, err := f.FetchImages(ctx, resolved)
		if err != nil {
			return nil, err
		}
		if len(images) > 0 {
			return images, nil
		}
	}
	return nil, fmt.Errorf("no garment images found at %s", resolved)
}

// ResolveShortenedURL follows redirects to find the final URL
func ResolveShortenedURL(url string) (string, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	req, err := http.NewRequest("HEAD", url, nil)
	if err != nil {
		return url, err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		// Some servers block HEAD; retry with GET.
		req, err = http.NewRequest("GET", url, nil)
		if err != nil {
			return url, err
		}
		req.Header.Set("User-Agent", browserUserAgent)

		resp, err = client.Do(req)
		if err != nil {
			return url, err
		}
	}
	defer resp.Body.Close()

	return resp.Request.URL.String(), nil
}
