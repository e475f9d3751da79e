package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sitecrawl/internal/archive"
	"github.com/jmylchreest/sitecrawl/internal/crawler"
	"github.com/jmylchreest/sitecrawl/internal/logger"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived HTML past the retention window",
	Long: `Delete the day directories of archived HTML for a domain that are
older than --keep-days.

Examples:
  sitecrawl prune --domain example.com
  sitecrawl prune --domain example.com --keep-days 7 --archive-dir /var/lib/sitecrawl`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	flags := pruneCmd.Flags()
	flags.StringP("domain", "d", "", "domain whose archive is pruned (required)")
	flags.Int("keep-days", archive.DefaultKeepDays, "days of archives to keep")
	flags.String("archive-dir", archive.DefaultRoot, "archive root directory")

	_ = pruneCmd.MarkFlagRequired("domain")
}

func runPrune(cmd *cobra.Command, args []string) error {
	initLogger()

	domain, _ := cmd.Flags().GetString("domain")
	keepDays, _ := cmd.Flags().GetInt("keep-days")

	root, _ := cmd.Flags().GetString("archive-dir")
	if !cmd.Flags().Changed("archive-dir") && viper.IsSet("archive_dir") {
		root = viper.GetString("archive_dir")
	}

	store := archive.NewOS(root)
	report, err := store.Prune(crawler.StripWWW(domain), keepDays)
	if err != nil {
		logger.Error("prune failed", "domain", domain, "error", err)
		return fmt.Errorf("prune %s: %w", domain, err)
	}

	logInfo("removed %d director%s, freed %s", report.Dirs, plural(report.Dirs, "y", "ies"), humanize.Bytes(uint64(report.Bytes)))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
