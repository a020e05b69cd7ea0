package garment

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractImages pulls garment image candidates from a parsed product page.
// Social-preview metadata comes first since retailers put the hero shot
// there; then explicit product imagery, then remaining large <img> tags.
func extractImages(doc *goquery.Document, base *url.URL) []string {
	var images []string
	seen := make(map[string]bool)

	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		abs := absolutize(base, raw)
		if abs == "" || seen[abs] || !looksLikeProductImage(abs) {
			return
		}
		seen[abs] = true
		images = append(images, abs)
	}

	doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find(`link[rel="image_src"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			add(href)
		}
	})
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			if src, ok = s.Attr("data-src"); !ok {
				return
			}
		}
		add(src)
	})

	return images
}

func absolutize(base *url.URL, raw string) string {
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// looksLikeProductImage filters out chrome the page carries alongside the
// garment: icons, sprites, logos, tracking pixels.
func looksLikeProductImage(u string) bool {
	lower := strings.ToLower(u)
	for _, junk := range []string{"sprite", "logo", "icon", "favicon", "pixel", "badge", ".svg", ".gif"} {
		if strings.Contains(lower, junk) {
			return false
		}
	}
	return true
}
