package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenya-ifp/fusion-api/internal/storage"
)

var (
	archiveAccount   string
	archiveContainer string

	// newArchive is replaced in tests.
	newArchive = func(ctx context.Context, account, container string) (storage.Archive, error) {
		return storage.NewAzureArchive(ctx, account, container)
	}
)

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.PersistentFlags().StringVar(&archiveAccount, "account", "", "Storage account (default $AZURE_STORAGE_ACCOUNT)")
	archiveCmd.PersistentFlags().StringVar(&archiveContainer, "container", "", "Container (default $AZURE_STORAGE_CONTAINER or fusion-archive)")

	archiveCmd.AddCommand(archiveListCmd, archiveGetCmd, archiveDeleteCmd)
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived alerts and digests",
}

var archiveListCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List archived blobs, e.g. alerts/2026/ or digests/",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		return withArchive(cmd, func(ctx context.Context, archive storage.Archive) error {
			names, err := archive.List(ctx, prefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print an archived blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(ctx context.Context, archive storage.Archive) error {
			data, err := archive.Retrieve(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete an archived blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(ctx context.Context, archive storage.Archive) error {
			if err := archive.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

func withArchive(cmd *cobra.Command, fn func(context.Context, storage.Archive) error) error {
	account := firstNonEmpty(archiveAccount, os.Getenv("AZURE_STORAGE_ACCOUNT"))
	container := firstNonEmpty(archiveContainer, os.Getenv("AZURE_STORAGE_CONTAINER"), "fusion-archive")
	if account == "" {
		return fmt.Errorf("storage account is required: set --account or AZURE_STORAGE_ACCOUNT")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	archive, err := newArchive(ctx, account, container)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	return fn(ctx, archive)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
