// Package bookmark defines the bookmark record and its mapping to and
// from the GitHub issue representation (title, frontmatter body, labels).
package bookmark

import (
	"fmt"
	"net/url"
	"strings"
)

// Type classifies a bookmark.
type Type string

const (
	// TypeArticle is the default bookmark type.
	TypeArticle Type = "article"
	// TypeVideo marks video content.
	TypeVideo Type = "video"
)

// ParseType converts a string to a Type.
// Accepts: article, video (case-insensitive).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "article":
		return TypeArticle, nil
	case "video":
		return TypeVideo, nil
	default:
		return TypeArticle, fmt.Errorf("unknown bookmark type %q: valid types are article, video", s)
	}
}

// Bookmark is a saved web page.
type Bookmark struct {
	Title    string
	URL      string
	Type     Type
	Provider string
	Notes    string
	Tags     []string
}

// Validate checks the invariants required before any remote write.
func (b *Bookmark) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("bookmark title must not be empty")
	}
	if strings.TrimSpace(b.URL) == "" {
		return fmt.Errorf("bookmark url must not be empty")
	}
	u, err := url.Parse(strings.TrimSpace(b.URL))
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("bookmark url %q must be absolute", b.URL)
	}
	return nil
}

// NormalizeTags trims, drops empties and deduplicates case-insensitively,
// keeping the first-seen spelling of each tag.
func NormalizeTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// Labels returns the label set for the issue: the type label plus the
// normalized tags.
func (b *Bookmark) Labels() []string {
	typ := b.Type
	if typ == "" {
		typ = TypeArticle
	}
	labels := []string{string(typ)}
	labels = append(labels, NormalizeTags(b.Tags)...)
	return labels
}

// TagsFromLabels recovers user tags from an issue's label set by removing
// the type labels.
func TagsFromLabels(labels []string) []string {
	var tags []string
	for _, l := range labels {
		if l == string(TypeArticle) || l == string(TypeVideo) {
			continue
		}
		tags = append(tags, l)
	}
	return tags
}

// TypeFromLabels recovers the bookmark type from an issue's label set.
// A video label wins; anything else is an article.
func TypeFromLabels(labels []string) Type {
	for _, l := range labels {
		if l == string(TypeVideo) {
			return TypeVideo
		}
	}
	return TypeArticle
}

// SameURL reports whether two URLs identify the same bookmark.
// URLs are equal after stripping at most one trailing slash from
// either side. No scheme, host-case or query normalization is done;
// broadening the match would change dedup behavior for existing data.
func SameURL(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return stripSlash(a) == stripSlash(b)
}

func stripSlash(u string) string {
	return strings.TrimSuffix(u, "/")
}
