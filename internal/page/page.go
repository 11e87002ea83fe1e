// Package page fetches lightweight metadata (title, provider, type)
// for a URL being bookmarked. Everything here is best effort: a fetch
// failure must never block a save.
package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rgopal/ghmark/internal/bookmark"
)

const (
	fetchTimeout = 10 * time.Second
	maxBodySize  = 2 * 1024 * 1024 // 2MB is plenty for a <head>
	userAgent    = "Mozilla/5.0 (compatible; ghmark/1.0)"
)

// videoHosts are hostnames whose pages default to the video type.
var videoHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"twitch.tv",
	"dailymotion.com",
}

// Metadata is what could be derived for a page.
type Metadata struct {
	Title    string
	Provider string
	Type     bookmark.Type
}

// Fetch retrieves the page and extracts its title and provider. On any
// failure it returns best-effort metadata derived from the URL alone,
// along with the error so callers can log it.
func Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	meta := &Metadata{
		Title:    rawURL,
		Provider: ProviderFromURL(rawURL),
		Type:     TypeForURL(rawURL),
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return meta, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return meta, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return meta, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return meta, fmt.Errorf("failed to parse page: %w", err)
	}

	if title := pageTitle(doc); title != "" {
		meta.Title = title
	}
	if site, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		if site = strings.TrimSpace(site); site != "" {
			meta.Provider = site
		}
	}

	return meta, nil
}

// pageTitle prefers og:title over the document title.
func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// ProviderFromURL derives a provider name from the URL's hostname with
// any www. prefix stripped.
func ProviderFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// TypeForURL classifies known video hosts; everything else is an
// article.
func TypeForURL(rawURL string) bookmark.Type {
	host := ProviderFromURL(rawURL)
	for _, vh := range videoHosts {
		if host == vh || strings.HasSuffix(host, "."+vh) {
			return bookmark.TypeVideo
		}
	}
	return bookmark.TypeArticle
}
