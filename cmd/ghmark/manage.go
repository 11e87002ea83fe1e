package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rgopal/ghmark/internal/bookmark"
)

var flagListState string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks from the local index",
	Long: `List bookmarks from the local SQLite index. The index is refreshed by
'ghmark pull' and by every save; listing never hits the network.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Rebuild the local index from the repository",
	Args:  cobra.NoArgs,
	RunE:  runPull,
}

var showCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show one bookmark",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var updateCmd = &cobra.Command{
	Use:   "update <number>",
	Short: "Update a bookmark",
	Long: `Update an existing bookmark. Only the given flags change; everything
else keeps its current value. Updating a removed bookmark reopens it.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

var removeCmd = &cobra.Command{
	Use:   "remove <number>",
	Short: "Remove a bookmark",
	Long: `Remove a bookmark by closing its issue. GitHub issues cannot be
deleted, so closed is the terminal state; 'ghmark update' reopens it.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	listCmd.Flags().StringVar(&flagListState, "state", "open", "filter by state: open, closed or all")

	updateCmd.Flags().StringVar(&flagTitle, "title", "", "new title")
	updateCmd.Flags().StringVar(&flagType, "type", "", "new type: article or video")
	updateCmd.Flags().StringSliceVar(&flagTags, "tags", nil, "replacement tag set")
	updateCmd.Flags().StringVar(&flagNotes, "notes", "", "replacement notes")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
}

func parseIssueNumber(arg string) (int, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("invalid issue number %q", arg)
	}
	return number, nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if a.index == nil {
		return fmt.Errorf("no local index: configure the repository and run 'ghmark pull' first")
	}

	records, err := a.index.List(a.cfg.Owner+"/"+a.cfg.Repo, flagListState)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("no bookmarks (try 'ghmark pull')")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("#%-5d %s", rec.Number, rec.Title)
		if len(rec.Tags) > 0 {
			line += "  [" + strings.Join(rec.Tags, ", ") + "]"
		}
		if rec.State == "closed" {
			line += "  (removed)"
		}
		fmt.Println(line)
		fmt.Printf("       %s\n", rec.URL)
	}
	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	count, err := a.syncer.Pull()
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d bookmarks\n", count)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	number, err := parseIssueNumber(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	b, issue, err := a.syncer.FetchDecoded(number)
	if err != nil {
		if issue == nil {
			return err
		}
		// Undecodable records are still shown raw.
		fmt.Printf("#%d %s (not a bookmark: %v)\n", issue.Number, issue.Title, err)
		fmt.Printf("state: %s\n\n%s\n", issue.State, issue.Body)
		return nil
	}

	fmt.Printf("#%d %s\n", issue.Number, b.Title)
	fmt.Printf("url:      %s\n", b.URL)
	fmt.Printf("type:     %s\n", b.Type)
	if b.Provider != "" {
		fmt.Printf("provider: %s\n", b.Provider)
	}
	if len(b.Tags) > 0 {
		fmt.Printf("tags:     %s\n", strings.Join(b.Tags, ", "))
	}
	fmt.Printf("state:    %s\n", issue.State)
	if b.Notes != "" {
		fmt.Printf("\n%s\n", b.Notes)
	}
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	number, err := parseIssueNumber(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	current, _, err := a.syncer.FetchDecoded(number)
	if err != nil {
		return err
	}

	b := *current
	if cmd.Flags().Changed("title") {
		b.Title = flagTitle
	}
	if cmd.Flags().Changed("type") {
		t, err := bookmark.ParseType(flagType)
		if err != nil {
			return err
		}
		b.Type = t
	}
	if cmd.Flags().Changed("tags") {
		b.Tags = bookmark.NormalizeTags(flagTags)
	}
	if cmd.Flags().Changed("notes") {
		b.Notes = flagNotes
	}

	issue, err := a.syncer.Update(number, b)
	if err != nil {
		return err
	}

	fmt.Printf("updated #%d: %s\n", issue.Number, issue.HTMLURL)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	number, err := parseIssueNumber(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.syncer.Close(number); err != nil {
		return err
	}

	fmt.Printf("removed #%d (issue closed)\n", number)
	return nil
}
