package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rgopal/ghmark/internal/bookmark"
	"github.com/rgopal/ghmark/internal/logger"
	"github.com/rgopal/ghmark/internal/page"
)

var (
	flagTitle string
	flagType  string
	flagTags  []string
	flagNotes string
	flagForce bool
)

var saveCmd = &cobra.Command{
	Use:   "save <url>",
	Short: "Save a bookmark",
	Long: `Save a URL as a bookmark. Unless --force is given, the repository is
checked for an existing bookmark of the same URL first and the save is
skipped when one is found.

When no --title is given the page is fetched and its title, provider
and type are derived from it.`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var saveAllCmd = &cobra.Command{
	Use:   "save-all <url>...",
	Short: "Save several bookmarks in one go",
	Long: `Save each URL in turn, duplicate-checking before every create. Failures
are counted per URL and reported at the end; one bad URL never aborts
the rest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSaveAll,
}

var findCmd = &cobra.Command{
	Use:   "find <url>",
	Short: "Check whether a URL is already bookmarked",
	Args:  cobra.ExactArgs(1),
	RunE:  runFind,
}

func init() {
	saveCmd.Flags().StringVar(&flagTitle, "title", "", "bookmark title (fetched from the page when omitted)")
	saveCmd.Flags().StringVar(&flagType, "type", "", "bookmark type: article or video")
	saveCmd.Flags().StringSliceVar(&flagTags, "tags", nil, "tags to attach")
	saveCmd.Flags().StringVar(&flagNotes, "notes", "", "free-text notes")
	saveCmd.Flags().BoolVar(&flagForce, "force", false, "save even if the URL is already bookmarked")

	saveAllCmd.Flags().StringSliceVar(&flagTags, "tags", nil, "tags to attach to every bookmark")

	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(saveAllCmd)
	rootCmd.AddCommand(findCmd)
}

// buildBookmark assembles a bookmark for url, fetching page metadata
// for anything the user did not provide.
func buildBookmark(url string, defaultTags []string) (bookmark.Bookmark, error) {
	b := bookmark.Bookmark{
		URL:   url,
		Title: flagTitle,
		Notes: flagNotes,
		Tags:  bookmark.NormalizeTags(append(append([]string{}, defaultTags...), flagTags...)),
	}

	if flagType != "" {
		t, err := bookmark.ParseType(flagType)
		if err != nil {
			return b, err
		}
		b.Type = t
	}

	needsFetch := b.Title == "" || b.Type == ""
	if needsFetch {
		meta, err := page.Fetch(context.Background(), url)
		if err != nil {
			logger.Debug("page metadata fetch for %s: %v", url, err)
		}
		if b.Title == "" {
			b.Title = meta.Title
		}
		if b.Type == "" {
			b.Type = meta.Type
		}
		b.Provider = meta.Provider
	} else {
		b.Provider = page.ProviderFromURL(url)
	}

	return b, nil
}

func runSave(cmd *cobra.Command, args []string) error {
	url := args[0]

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if !flagForce {
		if existing := a.res.FindExisting(url); existing != nil {
			fmt.Printf("already bookmarked as #%d: %s\n", existing.Number, existing.HTMLURL)
			return nil
		}
	}

	b, err := buildBookmark(url, a.cfg.DefaultTags)
	if err != nil {
		return err
	}
	issue, err := a.syncer.Create(b)
	if err != nil {
		return err
	}

	fmt.Printf("saved #%d: %s\n", issue.Number, issue.HTMLURL)
	return nil
}

func runSaveAll(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	items := make([]bookmark.Bookmark, 0, len(args))
	for _, url := range args {
		b, err := buildBookmark(url, a.cfg.DefaultTags)
		if err != nil {
			return err
		}
		items = append(items, b)
	}

	sum := a.syncer.SaveAll(items)

	for _, res := range sum.Results {
		switch {
		case res.Err != nil:
			fmt.Printf("failed  %s: %v\n", res.URL, res.Err)
		case res.Existing != nil:
			fmt.Printf("skipped %s (already #%d)\n", res.URL, res.Existing.Number)
		default:
			fmt.Printf("saved   %s as #%d\n", res.URL, res.Issue.Number)
		}
	}
	fmt.Printf("%d saved, %d skipped, %d failed\n", sum.Saved, sum.Skipped, sum.Failed)
	return nil
}

func runFind(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	existing := a.res.FindExisting(args[0])
	if existing == nil {
		fmt.Println("not bookmarked")
		return nil
	}

	fmt.Printf("bookmarked as #%d: %s\n", existing.Number, existing.HTMLURL)
	return nil
}
