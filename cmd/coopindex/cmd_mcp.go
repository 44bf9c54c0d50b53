package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/logging"
	"github.com/nvandessel/coopindex/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run as an MCP server over stdio",
		Long: `Run coopindex as a Model Context Protocol server on stdin/stdout.

Tools: cooperation_index, fixation_matrix, donation_probability, sweep.
Every tool call starts from the configured game parameters; callers
override individual fields. Tool calls are rate limited and, unless
--no-audit is set, recorded to ~/.coopindex/audit.jsonl.

Example client configuration:
  {"mcpServers": {"coopindex": {"command": "coopindex", "args": ["mcp-server"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			noAudit, _ := cmd.Flags().GetBool("no-audit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs go to stderr only
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			events := logging.NewEventLogger(cfg.Logging.TraceDir, cfg.Logging.Level)
			defer events.Close()

			results := openCache(cfg, logger)
			if results != nil {
				defer results.Close()
			}

			auditDir := ""
			if !noAudit {
				if path := configPath(cmd); path != "" {
					auditDir = filepath.Dir(path)
				}
			}

			serverCfg := &mcp.Config{
				Name:     "coopindex",
				Version:  version,
				Params:   cfg.Game,
				Solver:   cfg.Solver,
				Workers:  cfg.Workers,
				AuditDir: auditDir,
				Logger:   logger,
				Events:   events,
			}
			if results != nil {
				serverCfg.Results = results
			}

			server, err := mcp.NewServer(serverCfg)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "version", version, "audit_dir", auditDir)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().Bool("no-audit", false, "Do not record tool calls to audit.jsonl")

	return cmd
}
