package main

import (
	"path/filepath"
	"strings"

	"github.com/danmuck/g2ctl/internal/config"
	"github.com/danmuck/g2ctl/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var servePath string
	cmd := &cobra.Command{
		Use:   "serve [file]...",
		Short: "Serve patches and performances over HTTP for inspection",
		Long: `The serve command loads the files named by a serve config and on the command
line, then serves summaries and decoded sections:

  GET /health, /ready, /metrics
  GET /patches
  GET /patches/:name?format=json|yaml|toml
  GET /patches/:name/sections/:section?slot=A

Example:
  g2ctl serve --serve-config serve.toml
  g2ctl serve lead.pch2 live.prf2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.serveConfig(servePath, args)
			if err != nil {
				return err
			}
			srv, err := server.FromConfig(cfg)
			if err != nil {
				return err
			}
			return srv.Serve()
		},
	}
	cmd.Flags().StringVar(&servePath, "serve-config", "", "Serve config file (TOML)")
	return cmd
}

// serveConfig merges a serve config file, the CLI config and file args.
// Files ending in .prf2 are performances, anything else a patch.
func (a *app) serveConfig(path string, files []string) (config.ServeConfig, error) {
	var cfg config.ServeConfig
	if path != "" {
		loaded, err := config.LoadServeConfig(path)
		if err != nil {
			return config.ServeConfig{}, err
		}
		cfg = loaded
	} else {
		cfg.Addr = a.cfg.ListenAddr
		cfg.CorsOrigins = a.cfg.CorsOrigins
		cfg.DumpDir = a.cfg.Device.DumpDir
	}
	for _, f := range files {
		pc := config.PatchConfig{Path: f}
		if strings.EqualFold(filepath.Ext(f), ".prf2") {
			cfg.Performances = append(cfg.Performances, pc)
			continue
		}
		cfg.Patches = append(cfg.Patches, pc)
	}
	cfg = config.ApplyServeDefaults(cfg)
	if err := config.ValidateServeConfig(cfg); err != nil {
		return config.ServeConfig{}, err
	}
	return cfg, nil
}
