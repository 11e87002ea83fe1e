// Package sync orchestrates bookmark create, update and close
// operations against the remote store, keeping the recent-write cache
// and the local index consistent with every write.
package sync

import (
	"fmt"
	"time"

	"github.com/rgopal/ghmark/internal/bookmark"
	"github.com/rgopal/ghmark/internal/cache"
	"github.com/rgopal/ghmark/internal/config"
	"github.com/rgopal/ghmark/internal/gh"
	"github.com/rgopal/ghmark/internal/index"
	"github.com/rgopal/ghmark/internal/logger"
	"github.com/rgopal/ghmark/internal/resolver"
)

// Syncer performs bookmark operations against the remote store.
type Syncer struct {
	client   *gh.Client
	cfg      *config.Config
	cache    *cache.Cache
	index    *index.DB // optional; nil disables the local index
	resolver *resolver.Resolver
}

// New creates a syncer. idx may be nil when no local index is wanted.
func New(client *gh.Client, cfg *config.Config, c *cache.Cache, idx *index.DB, r *resolver.Resolver) *Syncer {
	return &Syncer{
		client:   client,
		cfg:      cfg,
		cache:    c,
		index:    idx,
		resolver: r,
	}
}

// repoKey is the index key for the configured repository.
func (s *Syncer) repoKey() string {
	return s.cfg.Owner + "/" + s.cfg.Repo
}

// Create encodes the bookmark and submits it as a new issue. On success
// the result is written to the recent-write cache so an immediate
// duplicate check finds it before the list API catches up.
//
// Create always makes a new record; checking for duplicates first is
// the caller's job.
func (s *Syncer) Create(b bookmark.Bookmark) (*gh.Issue, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	enc := bookmark.Encode(b, false, time.Time{}, nil)

	issue, err := s.client.CreateIssue(s.cfg.Owner, s.cfg.Repo, enc.Title, enc.Body, enc.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookmark: %w", err)
	}

	s.cache.Put(b.URL, issue.Number, issue.HTMLURL)
	s.indexUpsert(issue, &b)

	logger.Info("sync: created bookmark #%d for %s", issue.Number, b.URL)
	return issue, nil
}

// Update re-encodes the bookmark into an existing issue, preserving its
// original date_saved and stamping a fresh date_updated. The state is
// forced back to open: updating a closed record resurrects it.
func (s *Syncer) Update(number int, b bookmark.Bookmark) (*gh.Issue, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	var savedAt time.Time
	if existing, err := s.client.GetIssue(s.cfg.Owner, s.cfg.Repo, number); err == nil {
		if f, err := bookmark.ParseBody(existing.Body); err == nil {
			savedAt = f.DateSaved
		}
	} else {
		logger.Debug("sync: could not fetch issue #%d before update: %v", number, err)
	}

	enc := bookmark.Encode(b, true, savedAt, nil)

	open := "open"
	issue, err := s.client.UpdateIssue(s.cfg.Owner, s.cfg.Repo, number, gh.IssueUpdate{
		Title:  &enc.Title,
		Body:   &enc.Body,
		Labels: &enc.Labels,
		State:  &open,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update bookmark #%d: %w", number, err)
	}

	s.cache.Put(b.URL, issue.Number, issue.HTMLURL)
	s.indexUpsert(issue, &b)

	logger.Info("sync: updated bookmark #%d", number)
	return issue, nil
}

// Close marks a bookmark as removed by closing its issue. Issues cannot
// be deleted, so closed is the terminal state. The URL is dropped from
// the recent-write cache so a later save creates a fresh record.
func (s *Syncer) Close(number int) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	issue, err := s.client.CloseIssue(s.cfg.Owner, s.cfg.Repo, number)
	if err != nil {
		return fmt.Errorf("failed to close bookmark #%d: %w", number, err)
	}

	if url, ok := bookmark.ExtractURL(issue.Body); ok {
		s.cache.Remove(url)
	}
	if s.index != nil {
		if err := s.index.SetState(s.repoKey(), number, "closed"); err != nil {
			logger.Debug("sync: index state update for #%d: %v", number, err)
		}
	}

	logger.Info("sync: closed bookmark #%d", number)
	return nil
}

// FetchDecoded retrieves an issue and decodes it back into a bookmark.
// A record with unparseable frontmatter fails decode but remains
// viewable as a raw issue.
func (s *Syncer) FetchDecoded(number int) (*bookmark.Bookmark, *gh.Issue, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, nil, err
	}

	issue, err := s.client.GetIssue(s.cfg.Owner, s.cfg.Repo, number)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch bookmark #%d: %w", number, err)
	}

	b, err := bookmark.Decode(issue.Body, issue.LabelNames())
	if err != nil {
		return nil, issue, fmt.Errorf("bookmark #%d: %w", number, err)
	}

	return b, issue, nil
}

// ItemResult is the outcome of one bookmark in a bulk save.
type ItemResult struct {
	URL      string
	Issue    *gh.Issue // the created record, when saved
	Existing *gh.Issue // the duplicate, when skipped
	Err      error
}

// Summary aggregates a bulk save.
type Summary struct {
	Saved   int
	Skipped int
	Failed  int
	Results []ItemResult
}

// SaveAll saves bookmarks one at a time, duplicate-checking each before
// creating it. Sequential on purpose: it bounds concurrent remote calls
// and keeps cache writes ordered. One failure never aborts the batch.
func (s *Syncer) SaveAll(items []bookmark.Bookmark) Summary {
	var sum Summary
	for _, b := range items {
		res := ItemResult{URL: b.URL}

		if existing := s.resolver.FindExisting(b.URL); existing != nil {
			res.Existing = existing
			sum.Skipped++
			logger.Debug("sync: skipping %s, already saved as #%d", b.URL, existing.Number)
			sum.Results = append(sum.Results, res)
			continue
		}

		issue, err := s.Create(b)
		if err != nil {
			res.Err = err
			sum.Failed++
			logger.Warn("sync: failed to save %s: %v", b.URL, err)
		} else {
			res.Issue = issue
			sum.Saved++
		}
		sum.Results = append(sum.Results, res)
	}
	return sum
}

// Pull rebuilds the local index from a full scan of the remote store.
// Issues whose frontmatter cannot be decoded are skipped with a
// warning; a bad record must not abort the rest.
func (s *Syncer) Pull() (int, error) {
	if err := s.cfg.Validate(); err != nil {
		return 0, err
	}
	if s.index == nil {
		return 0, fmt.Errorf("no local index configured")
	}

	var records []index.Record
	for page := 1; ; page++ {
		issues, err := s.client.ListIssues(s.cfg.Owner, s.cfg.Repo, "all", page, resolver.PageSize)
		if err != nil {
			return 0, fmt.Errorf("failed to list issues: %w", err)
		}

		for i := range issues {
			issue := &issues[i]
			if issue.IsPullRequest() {
				continue
			}
			b, err := bookmark.Decode(issue.Body, issue.LabelNames())
			if err != nil {
				logger.Warn("sync: skipping issue #%d during pull: %v", issue.Number, err)
				continue
			}
			records = append(records, s.record(issue, b))
		}

		if len(issues) < resolver.PageSize {
			break
		}
	}

	if err := s.index.ReplaceAll(s.repoKey(), records); err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}

	logger.Info("sync: pulled %d bookmarks into the local index", len(records))
	return len(records), nil
}

// record maps an issue plus its decoded bookmark to an index record.
func (s *Syncer) record(issue *gh.Issue, b *bookmark.Bookmark) index.Record {
	savedAt := issue.CreatedAt.UTC().Format(time.RFC3339)
	if f, err := bookmark.ParseBody(issue.Body); err == nil && !f.DateSaved.IsZero() {
		savedAt = f.DateSaved.UTC().Format(time.RFC3339)
	}

	typ := b.Type
	if typ == "" {
		typ = bookmark.TypeArticle
	}

	return index.Record{
		Number:    issue.Number,
		Repo:      s.repoKey(),
		Title:     b.Title,
		URL:       b.URL,
		Provider:  b.Provider,
		Type:      string(typ),
		Tags:      b.Tags,
		State:     issue.State,
		HTMLURL:   issue.HTMLURL,
		SavedAt:   savedAt,
		UpdatedAt: issue.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// indexUpsert mirrors a successful write into the local index. Index
// failures are logged, never surfaced: the remote write already
// succeeded.
func (s *Syncer) indexUpsert(issue *gh.Issue, b *bookmark.Bookmark) {
	if s.index == nil {
		return
	}
	if err := s.index.Upsert(s.record(issue, b)); err != nil {
		logger.Warn("sync: failed to index bookmark #%d: %v", issue.Number, err)
	}
}
