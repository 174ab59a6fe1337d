package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/bubblescan/internal/config"
	"github.com/ironsheep/bubblescan/internal/server"
)

var watchConfig bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server on stdin and stdout",
	Long: `Run bubblescan as an MCP (Model Context Protocol) server.

Requests are read as JSON-RPC 2.0, one per line, from stdin and responses
are written to stdout. Logs go to stderr. Configure it as a stdio server in
your MCP client.

With --watch, edits to the config file take effect without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadConfig()
		if err != nil {
			return err
		}
		reader, logger, err := newReader(m.Get())
		if err != nil {
			return err
		}

		srv := server.New(reader, logger, Version)
		if watchConfig && m.ConfigFile() != "" {
			m.OnChange(func(cfg *config.Config) {
				r, _, err := newReader(cfg)
				if err != nil {
					logger.Warn("ignoring config reload", "error", err)
					return
				}
				srv.SetReader(r)
				logger.Info("config reloaded", "file", m.ConfigFile(), "variant", cfg.Variant)
			})
			m.WatchConfig()
		}

		logger.Debug("server starting", "version", Version, "commit", GitCommit, "built", BuildTime)
		return srv.Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&watchConfig, "watch", false, "reload the config file when it changes")

	rootCmd.AddCommand(serveCmd)
}
