// Package resolver decides whether a URL is already bookmarked,
// combining the recent-write cache with a bounded scan of the remote
// store.
package resolver

import (
	"github.com/rgopal/ghmark/internal/bookmark"
	"github.com/rgopal/ghmark/internal/cache"
	"github.com/rgopal/ghmark/internal/config"
	"github.com/rgopal/ghmark/internal/gh"
	"github.com/rgopal/ghmark/internal/logger"
)

const (
	// PageSize is how many issues each scan page requests.
	PageSize = 100
	// MaxPages caps the lookback window. Bookmarks older than
	// MaxPages*PageSize issues are not found; that bounds worst-case
	// latency instead of cancellation.
	MaxPages = 10
)

// IssueLister is the slice of the GitHub client the resolver needs.
type IssueLister interface {
	ListIssues(owner, repo, state string, page, perPage int) ([]gh.Issue, error)
}

// Resolver finds existing bookmarks for a URL.
type Resolver struct {
	client IssueLister
	cache  *cache.Cache
	cfg    *config.Config
}

// New creates a resolver. cfg is consulted on every lookup so later
// config changes are picked up.
func New(client IssueLister, c *cache.Cache, cfg *config.Config) *Resolver {
	return &Resolver{client: client, cache: c, cfg: cfg}
}

// FindExisting returns the open issue already recording url, or nil.
//
// The recent-write cache is consulted first: it masks the lag between
// creating an issue and the list API returning it. A cache hit is
// returned as a synthesized minimal record. Otherwise the open issues
// are scanned newest first, up to MaxPages pages.
//
// Any transport or API failure degrades to nil: a missed duplicate is
// recoverable, a blocked save is not.
func (r *Resolver) FindExisting(url string) *gh.Issue {
	if entry, ok := r.cache.Get(url); ok {
		logger.Debug("resolver: cache hit for %s -> issue #%d", url, entry.IssueNumber)
		return &gh.Issue{
			Number:  entry.IssueNumber,
			HTMLURL: entry.IssueURL,
			State:   "open",
		}
	}

	if !r.cfg.Complete() {
		logger.Debug("resolver: repository not configured, skipping remote scan")
		return nil
	}

	for page := 1; page <= MaxPages; page++ {
		issues, err := r.client.ListIssues(r.cfg.Owner, r.cfg.Repo, "open", page, PageSize)
		if err != nil {
			logger.Warn("resolver: duplicate scan failed on page %d: %v", page, err)
			return nil
		}

		for i := range issues {
			issue := &issues[i]
			if issue.IsPullRequest() || issue.Body == "" {
				continue
			}
			stored, ok := bookmark.ExtractURL(issue.Body)
			if !ok {
				continue
			}
			if bookmark.SameURL(stored, url) {
				logger.Debug("resolver: %s already recorded as issue #%d", url, issue.Number)
				return issue
			}
		}

		// A short page means end of data.
		if len(issues) < PageSize {
			break
		}
	}

	return nil
}
