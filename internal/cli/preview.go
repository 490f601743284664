package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenya-ifp/fusion-api/internal/config"
	"github.com/kenya-ifp/fusion-api/internal/intelligence"
	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/monitoring"
	"github.com/kenya-ifp/fusion-api/internal/storage"
)

var (
	previewFeeds  []string
	previewPeriod string
	previewAgency string
	previewOut    string
)

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringSliceVar(&previewFeeds, "feed", nil, "Feed URL to pull (repeatable, default $FEED_URLS)")
	previewCmd.Flags().StringVar(&previewPeriod, "period", "daily", "Digest period (daily|weekly)")
	previewCmd.Flags().StringVar(&previewAgency, "agency", string(models.AgencyNIS), "Agency recorded as the submitter of feed reports")
	previewCmd.Flags().StringVarP(&previewOut, "out", "o", "", "Also write the digest as JSON to this file")
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Pull the OSINT feeds once and print the digest they would produce",
	Long: "Runs one feed sync into an in-memory store, classifying every item with the\n" +
		"same rules as the API, then prints the resulting digest. Nothing is sent or archived.",
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	feeds := previewFeeds
	if len(feeds) == 0 {
		for _, f := range strings.Split(os.Getenv("FEED_URLS"), ",") {
			if f = strings.TrimSpace(f); f != "" {
				feeds = append(feeds, f)
			}
		}
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds: pass --feed or set FEED_URLS")
	}
	if previewPeriod != "daily" && previewPeriod != "weekly" {
		return fmt.Errorf("period must be 'daily' or 'weekly'")
	}
	if !models.Agency(previewAgency).Valid() {
		return fmt.Errorf("unknown agency %q", previewAgency)
	}

	cfg := &config.Config{
		FeedURLs:       feeds,
		FeedAgency:     previewAgency,
		DigestSchedule: previewPeriod,
	}

	reports := storage.NewReportStore()
	intel := intelligence.NewService(reports, nil)
	notifier := &terminalNotifier{out: cmd.OutOrStdout()}
	service := monitoring.NewService(cfg, reports, storage.NewAlertStore(), nil, notifier, intel, nil)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	if err := service.RunFeedSync(ctx); err != nil {
		return err
	}
	digest, err := service.RunDigest(ctx)
	if err != nil {
		return err
	}

	if previewOut != "" {
		data, err := json.MarshalIndent(digest, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(previewOut, data, 0644); err != nil {
			return fmt.Errorf("write digest: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Digest written to %s\n", previewOut)
	}
	return nil
}

// terminalNotifier prints instead of delivering.
type terminalNotifier struct {
	out io.Writer
}

func (t *terminalNotifier) SendDigest(ctx context.Context, digest *models.Digest) error {
	fmt.Fprintln(t.out, strings.Repeat("=", 60))
	fmt.Fprintf(t.out, "FUSION DIGEST (%s)\n", digest.Period)
	fmt.Fprintln(t.out, strings.Repeat("=", 60))
	fmt.Fprintf(t.out, "Generated: %s\n", digest.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(t.out, "Reports:   %d\n", digest.TotalReports)
	fmt.Fprintf(t.out, "Alerts:    %d\n", digest.TotalAlerts)

	printCounts(t.out, "By threat level", digest.ByLevel)
	printCounts(t.out, "By category", digest.ByCategory)
	return nil
}

func (t *terminalNotifier) SendAlert(ctx context.Context, alert models.Alert) error {
	fmt.Fprintf(t.out, "ALERT [%s] %s\n", alert.ThreatLevel, alert.Title)
	return nil
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(out, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-12s %d\n", k+":", counts[k])
	}
}
