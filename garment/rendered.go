package garment

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// renderedHosts are retailers whose product pages are assembled client-side;
// a plain GET returns an empty shell for them.
var renderedHosts = []string{"myntra.com", "tatacliq.com", "ajio.com"}

// RenderedFetcher drives headless Chrome for pages that need JavaScript to
// render their product imagery.
type RenderedFetcher struct {
	// settleDelay gives client-side galleries time to populate after the
	// body is ready.
	settleDelay time.Duration
}

func NewRenderedFetcher() *RenderedFetcher {
	return &RenderedFetcher{settleDelay: 5 * time.Second}
}

func (f *RenderedFetcher) CanFetch(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range renderedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (f *RenderedFetcher) FetchImages(ctx context.Context, pageURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.UserAgent(browserUserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	headers := map[string]interface{}{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}

	var htmlContent string
	err := chromedp.Run(taskCtx,
		network.SetExtraHTTPHeaders(network.Headers(headers)),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settleDelay),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	return extractImages(doc, base), nil
}
