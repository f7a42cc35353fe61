// =============================================================================
// XtractPajak - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (xtractpajak)
//   ├── processCmd  (xtractpajak process)
//   ├── extractCmd  (xtractpajak extract)
//   ├── convertCmd  (xtractpajak convert)
//   ├── schemaCmd   (xtractpajak schema)
//   └── versionCmd  (xtractpajak version)
//
// The root command owns the global flags, loads the main configuration and
// builds the logger before any subcommand runs.
//
// ENVIRONMENT:
//   XTRACTPAJAK_CONFIG, XTRACTPAJAK_LOG_LEVEL, XTRACTPAJAK_LOG_FORMAT,
//   XTRACTPAJAK_INPUT_DIR, XTRACTPAJAK_OUTPUT_DIR, ... override config.yaml.
//   --config takes precedence over XTRACTPAJAK_CONFIG.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/xtractpajak/internal/config"
	"github.com/ginjaninja78/xtractpajak/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig is loaded in PersistentPreRunE.
var mainConfig *config.MainConfig

// log is the command logger, built from the configuration.
var log zerolog.Logger

// envPrefix prefixes environment overrides.
const envPrefix = "XTRACTPAJAK"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "xtractpajak",
	Short: "XtractPajak - Tax ledger (BKPP) extraction to bulk upload workbooks and XML",
	Long: `XtractPajak reads tax ledger reports (Buku Pembantu Pajak), reconstructs the
ledger entries and produces the withholding slip workbooks and bulk upload XML
for PPh 21 and the unified withholding (PPh 22, PPh 23, PPh 4(2)).

Key Features:
  - PDF and plain text ledger input
  - Extraction workbook with per-tax totals and a monthly pivot
  - Template filling for Bupot 21 and Bupot Unifikasi
  - Bulk XML generation from mapped data or from filled templates
  - Concurrent batch processing with archival of processed input

Example Usage:
  xtractpajak process                                   # Process the input directory
  xtractpajak process --file bkpp.pdf --tin 0123456789012345 --type 21
  xtractpajak extract --file bkpp.pdf                   # Extraction workbook only
  xtractpajak convert --file bupot21.xlsx --type 21     # Filled template to XML`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initConfig loads the main configuration and sets up logging. A missing
// configuration file falls back to the defaults only when no path was given
// through --config or the environment.
func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindPFlag("config", cmd.Flags().Lookup("config")); err != nil {
		return err
	}
	path := v.GetString("config")
	_, envSet := os.LookupEnv(envPrefix + "_CONFIG")

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") || envSet {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		cfg = config.DefaultMainConfig()
	}
	applyEnvOverrides(cfg, v)
	mainConfig = cfg

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log = logger.NewWithFormat(level, cfg.LogFormat)
	cmd.SetContext(logger.WithContext(cmd.Context(), log))

	if err != nil {
		log.Debug().Str("config", path).Msg("Configuration file not found, using defaults")
	}
	return nil
}

// applyEnvOverrides copies non-empty environment values onto cfg.
func applyEnvOverrides(cfg *config.MainConfig, v *viper.Viper) {
	targets := map[string]*string{
		"input_dir":         &cfg.InputDir,
		"output_dir":        &cfg.OutputDir,
		"input_archive_dir": &cfg.InputArchiveDir,
		"templates_dir":     &cfg.TemplatesDir,
		"profiles_dir":      &cfg.ProfilesDir,
		"rate_table":        &cfg.RateTable,
		"log_level":         &cfg.LogLevel,
		"log_format":        &cfg.LogFormat,
	}
	for key, target := range targets {
		if s := v.GetString(key); s != "" {
			*target = s
		}
	}
}
