package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/bubblescan/internal/config"
	"github.com/ironsheep/bubblescan/internal/sheet"
)

var (
	cfgFile  string
	logLevel string
	variant  string
)

var rootCmd = &cobra.Command{
	Use:   "bubblescan",
	Short: "Read scanned multiple-choice bubble sheets",
	Long: `Bubblescan reads scanned optical mark recognition (OMR) answer sheets.

Each scan is registered by its L-shaped corner mark and three square marks,
a grid is laid over the sheet, and every bubble's fill ratio is compared with
a threshold derived from that sheet alone. Sheets with student ID 9999999999
are answer keys; exams are graded against the key with the same test form
code.

Configuration is read from ./bubblescan.yaml or ~/.bubblescan/bubblescan.yaml
and BUBBLESCAN_* environment variables.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./bubblescan.yaml or ~/.bubblescan/bubblescan.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&variant, "variant", "", "sheet variant: 75q, 150q or a YAML variant file (overrides config)",
	)

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and applies the persistent flag overrides.
func loadConfig() (*config.Manager, error) {
	m, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if err := m.Set("log_level", logLevel); err != nil {
			return nil, err
		}
	}
	if variant != "" {
		if err := m.Set("variant", variant); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// newReader builds the logger and sheet reader for cfg. Logs go to stderr;
// stdout is reserved for command output and the MCP protocol.
func newReader(cfg *config.Config) (*sheet.Reader, *slog.Logger, error) {
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.SheetOptions()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	reader, err := sheet.NewReader(opts, logger)
	if err != nil {
		return nil, nil, err
	}
	return reader, logger, nil
}
