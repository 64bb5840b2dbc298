package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/g2ctl/internal/logging"
	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/report"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app carries the global flags and the loaded config to every subcommand.
type app struct {
	configPath string
	verbose    bool
	jsonOut    bool
	cfg        cliConfig
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: defaultCLIConfig()}
	root := &cobra.Command{
		Use:   "g2ctl",
		Short: "Inspect and convert Nord Modular G2 patches and performances",
		Long: `g2ctl decodes G2 patch (.pch2) and performance (.prf2) files, verifies
that they re-encode byte for byte, exports summaries and serves loaded files
over HTTP for inspection.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "g2ctl config file (TOML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")

	root.AddCommand(
		newInfoCmd(a),
		newRoundTripCmd(a),
		newExportCmd(a),
		newEntriesCmd(a),
		newReplayCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup() error {
	logging.ConfigureRuntime()
	if a.configPath != "" {
		cfg, err := loadCLIConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	level := a.cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	if level != "" && !logging.SetLevel(level) {
		return fmt.Errorf("unknown log level %q", level)
	}
	log.Debug().Str("config", a.configPath).Msg("g2ctl configured")
	return nil
}

func (a *app) stateConfig() state.Config {
	return state.Config{DumpDir: a.cfg.Device.DumpDir}
}

func (a *app) printJSON(w io.Writer, v any) error {
	return report.Encode(w, v, report.FormatJSON)
}

// loaded is a decoded file: exactly one of patch and perf is set.
type loaded struct {
	raw   []byte
	patch *state.Patch
	perf  *state.Performance
}

func (l loaded) kind() string {
	if l.perf != nil {
		return "performance"
	}
	return "patch"
}

func (l loaded) encode() ([]byte, error) {
	if l.perf != nil {
		return l.perf.FileBytes()
	}
	return l.patch.FileBytes()
}

func (l loaded) summary() any {
	if l.perf != nil {
		return report.SummarizePerformance(l.perf)
	}
	return report.Summarize(l.patch)
}

// load decodes a patch or performance file, chosen by its header.
func (a *app) load(path string) (loaded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return loaded{}, err
	}
	l := loaded{raw: raw}
	switch {
	case bytes.HasPrefix(raw, protocol.PerformanceFileHeader):
		l.perf, err = state.ReadPerformanceFileBytes(raw, a.stateConfig())
	case bytes.HasPrefix(raw, protocol.PatchFileHeader):
		l.patch, err = state.ReadPatchFileBytes(state.SlotA, raw, a.stateConfig())
	default:
		return loaded{}, fmt.Errorf("%s: %w", path, protocol.ErrBadFileHeader)
	}
	if err != nil {
		return loaded{}, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("file", path).Str("kind", l.kind()).Int("bytes", len(raw)).Msg("loaded")
	return l, nil
}
