package garment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const productPage = `<!doctype html>
<html><head>
<meta property="og:image" content="https://cdn.example.com/hero.jpg">
<link rel="image_src" href="/img/alt-view.jpg">
<link rel="icon" href="/favicon.ico">
</head><body>
<img src="/img/front.jpg">
<img src="/assets/logo.png">
<img src="data:image/png;base64,AAAA">
<img data-src="/img/lazy-back.jpg">
<img src="/sprites/ui-sprite.png">
</body></html>`

func parseDoc(t *testing.T, html, baseURL string) (*goquery.Document, *url.URL) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parsing base url: %v", err)
	}
	return doc, base
}

func TestExtractImages_HeroFirstAndFiltered(t *testing.T) {
	doc, base := parseDoc(t, productPage, "https://shop.example.com/p/123")

	got := extractImages(doc, base)

	want := []string{
		"https://cdn.example.com/hero.jpg",
		"https://shop.example.com/img/alt-view.jpg",
		"https://shop.example.com/img/front.jpg",
		"https://shop.example.com/img/lazy-back.jpg",
	}
	if len(got) != len(want) {
		t.Fatalf("extracted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("image %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractImages_DeduplicatesAcrossSources(t *testing.T) {
	html := `<html><head><meta property="og:image" content="https://cdn.example.com/hero.jpg"></head>
<body><img src="https://cdn.example.com/hero.jpg"></body></html>`
	doc, base := parseDoc(t, html, "https://shop.example.com/p/1")

	got := extractImages(doc, base)
	if len(got) != 1 {
		t.Errorf("extracted %v, want single deduplicated entry", got)
	}
}

func TestStaticFetcher_FetchImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("missing browser user agent, got %q", ua)
		}
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	f := NewStaticFetcher()
	got, err := f.FetchImages(context.Background(), srv.URL+"/p/123")
	if err != nil {
		t.Fatalf("FetchImages: %v", err)
	}
	if len(got) == 0 || got[0] != "https://cdn.example.com/hero.jpg" {
		t.Errorf("images = %v, want hero first", got)
	}
}

func TestStaticFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewStaticFetcher()
	if _, err := f.FetchImages(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 403 response")
	}
}

func TestRenderedFetcher_CanFetch(t *testing.T) {
	f := NewRenderedFetcher()
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.myntra.com/tshirts/brand/p/1", true},
		{"https://tatacliq.com/p/2", true},
		{"https://shop.example.com/p/3", false},
	}
	for _, tt := range tests {
		if got := f.CanFetch(tt.url); got != tt.want {
			t.Errorf("CanFetch(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
