package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rgopal/ghmark/internal/config"
	"github.com/rgopal/ghmark/internal/credstore"
)

var (
	flagOwner       string
	flagRepo        string
	flagDefaultTags []string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the target repository configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the target repository",
	Args:  cobra.NoArgs,
	RunE:  runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the GitHub token in the OS keychain",
	Long: `Manage the personal access token via the local keychain helper named
by ` + credstore.HelperEnvVar + `. Without a helper, ghmark falls back to the
GITHUB_TOKEN environment variable.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a token in the keychain (reads it from stdin)",
	Args:  cobra.NoArgs,
	RunE:  runAuthSet,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE:  runAuthRemove,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check keychain helper health and token presence",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	configSetCmd.Flags().StringVar(&flagOwner, "owner", "", "repository owner")
	configSetCmd.Flags().StringVar(&flagRepo, "repo", "", "repository name")
	configSetCmd.Flags().StringSliceVar(&flagDefaultTags, "default-tags", nil, "tags added to every new bookmark")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authRemoveCmd)
	authCmd.AddCommand(authStatusCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("owner") {
		cfg.Owner = flagOwner
	}
	if cmd.Flags().Changed("repo") {
		cfg.Repo = flagRepo
	}
	if cmd.Flags().Changed("default-tags") {
		cfg.DefaultTags = flagDefaultTags
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("configured %s/%s\n", cfg.Owner, cfg.Repo)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if !cfg.Complete() {
		fmt.Println("repository not configured")
	} else {
		fmt.Printf("repository:   %s/%s\n", cfg.Owner, cfg.Repo)
	}
	if len(cfg.DefaultTags) > 0 {
		fmt.Printf("default tags: %s\n", strings.Join(cfg.DefaultTags, ", "))
	}
	return nil
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	fmt.Fprint(os.Stderr, "paste token: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read token: %w", err)
	}

	token := strings.TrimSpace(line)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	if err := credstore.New("").Set(token); err != nil {
		return err
	}

	fmt.Println("token stored")
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	if err := credstore.New("").Remove(); err != nil {
		return err
	}
	fmt.Println("token removed")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	store := credstore.New("")

	backend, err := store.Health()
	if err != nil {
		fmt.Printf("keychain helper: unavailable (%v)\n", err)
	} else {
		fmt.Printf("keychain helper: healthy (backend: %s)\n", backend)
	}

	if _, err := store.Token(); err != nil {
		fmt.Println("token: not found")
	} else {
		fmt.Println("token: present")
	}
	return nil
}
