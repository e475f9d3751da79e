// Package commands implements the CLI commands for sitecrawl.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sitecrawl/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sitecrawl",
	Short: "Stealth headless-browser crawler for site ingestion",
	Long: `Sitecrawl crawls one site per seed URL through headless Chrome and
collects the clean text of every page it reaches.

Pages are fetched one at a time with human-like pacing, challenge and
captcha pages are detected and skipped, and results are written as
JSON, JSONL or YAML.

Examples:
  # Crawl a site with the default policy (depth 2, 50 pages)
  sitecrawl crawl -u "https://example.com"

  # Only documentation pages, three levels deep
  sitecrawl crawl -u "https://example.com/docs/" --include /docs/ --max-depth 3

  # Several sites at once, streamed as JSONL
  sitecrawl crawl -u "https://a.example" -u "https://b.example" -c 2 --format jsonl

  # Drop archived HTML older than a week
  sitecrawl prune --domain example.com --keep-days 7`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.sitecrawl.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".sitecrawl")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("SITECRAWL")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// initLogger configures logging from the global flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
