package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/damacus/iron-gallery/internal/config"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/spf13/cobra"
)

var sharesCmd = &cobra.Command{
	Use:   "shares",
	Short: "Manage share links without the web UI",
	Long: `List, create and revoke share links in the configured registry.

Examples:
  iron-gallery shares list
  iron-gallery shares create trips/2024 --password hunter2 --editable
  iron-gallery shares delete 6f1c2e3a-...`,
}

var sharesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List share links",
	Args:  cobra.NoArgs,
	RunE:  runSharesList,
}

var sharesCreateCmd = &cobra.Command{
	Use:   "create <folder>",
	Short: "Create a share link for a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharesCreate,
}

var sharesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Revoke a share link",
	Args:  cobra.ExactArgs(1),
	RunE:  runSharesDelete,
}

var (
	sharesJSON     bool
	sharesPassword string
	sharesEditable bool
)

func init() {
	sharesCmd.PersistentFlags().BoolVar(&sharesJSON, "json", false, "print JSON instead of text")
	sharesCreateCmd.Flags().StringVar(&sharesPassword, "password", "", "require this password to open the share")
	sharesCreateCmd.Flags().BoolVar(&sharesEditable, "editable", false, "allow visitors to upload")

	sharesCmd.AddCommand(sharesListCmd, sharesCreateCmd, sharesDeleteCmd)
	rootCmd.AddCommand(sharesCmd)
}

// shareSummary is the CLI view of a share; the password hash never leaves the registry
type shareSummary struct {
	ID          string    `json:"id"`
	FolderKey   string    `json:"folderKey"`
	URL         string    `json:"url"`
	HasPassword bool      `json:"hasPassword"`
	Editable    bool      `json:"editable"`
	CreatedAt   time.Time `json:"createdAt"`
}

func summarize(rec shares.Record) shareSummary {
	return shareSummary{
		ID:          rec.ID,
		FolderKey:   rec.FolderKey,
		URL:         "/s/" + rec.ID,
		HasPassword: rec.HasPassword(),
		Editable:    rec.Editable,
		CreatedAt:   rec.CreatedAt,
	}
}

// openRegistry only builds an S3 client when the registry lives in the bucket
func openRegistry(cfg *config.Config) (*shares.Registry, error) {
	var store *services.ObjectStore
	if cfg.Shares.Backend == "object" {
		client, err := services.NewMinioClient(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		if store, err = services.NewObjectStore(client, cfg.S3.Bucket); err != nil {
			return nil, err
		}
	}
	backend, err := sharesBackend(cfg, store)
	if err != nil {
		return nil, err
	}
	return shares.NewRegistry(backend), nil
}

func runSharesList(cmd *cobra.Command, _ []string) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}
	registry, err := openRegistry(cfg)
	if err != nil {
		return err
	}

	records, err := registry.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list shares: %w", err)
	}
	summaries := make([]shareSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}

	w := cmd.OutOrStdout()
	if sharesJSON {
		return writeJSON(w, summaries)
	}
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(w, "No shares")
		return nil
	}
	for _, s := range summaries {
		_, _ = fmt.Fprintf(w, "%s  %s  password=%t editable=%t  %s\n",
			s.ID, s.FolderKey, s.HasPassword, s.Editable, s.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runSharesCreate(cmd *cobra.Command, args []string) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}
	registry, err := openRegistry(cfg)
	if err != nil {
		return err
	}

	rec, err := registry.Create(cmd.Context(), shares.CreateParams{
		FolderKey: strings.TrimSuffix(services.JoinKey(args[0]), "/"),
		Password:  sharesPassword,
		Editable:  sharesEditable,
	})
	if err != nil {
		return fmt.Errorf("create share: %w", err)
	}

	w := cmd.OutOrStdout()
	if sharesJSON {
		return writeJSON(w, summarize(rec))
	}
	_, _ = fmt.Fprintf(w, "Created: %s -> %s\n", summarize(rec).URL, rec.FolderKey)
	return nil
}

func runSharesDelete(cmd *cobra.Command, args []string) error {
	cfg, err := configFromContext(cmd.Context())
	if err != nil {
		return err
	}
	registry, err := openRegistry(cfg)
	if err != nil {
		return err
	}

	if err := registry.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if !sharesJSON {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", args[0])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
