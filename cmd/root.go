package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/relstatus/internal/launchpad"
	"github.com/joescharf/relstatus/internal/models"
	"github.com/joescharf/relstatus/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "relstatus",
	Short: "Release status - blueprints, reviews, and cycle progress",
	Long: `relstatus reports the status of a release series.
It reads the series' blueprints from Launchpad, links them to the
changes under review or merged in Gerrit, flags blueprints whose
tracking data needs attention, and places today on the release
cycle gauge.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/relstatus/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "relstatus"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RELSTATUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every default via viper.SetDefault().
func setDefaults() {
	viper.SetDefault("series", "")
	viper.SetDefault("products", []string{})
	viper.SetDefault("release_date", "")
	viper.SetDefault("milestones", []any{})
	viper.SetDefault("review.host", models.DefaultReviewHost)
	viper.SetDefault("review.port", 29418)
	viper.SetDefault("review.project_prefix", "openstack")
	viper.SetDefault("review.branch", "master")
	viper.SetDefault("review.max_age", models.DefaultReviewMaxAge)
	viper.SetDefault("launchpad.api_url", launchpad.DefaultAPIURL)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("port", 8080)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}
