package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/encodeous/weft/core"
	"github.com/encodeous/weft/state"
	"github.com/spf13/cobra"
)

// loadConfig reads --config and applies the --seed and --ticks overrides
// shared by the simulation commands.
func loadConfig(cmd *cobra.Command) (*state.SimCfg, error) {
	cfg, err := core.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if f := cmd.Flags().Lookup("ticks"); f != nil && f.Changed {
		cfg.MaxTicks, _ = cmd.Flags().GetUint64("ticks")
	}
	return cfg, nil
}

// offlineTicks is --ticks when given, else max_ticks from the config, else
// the flag default.
func offlineTicks(cmd *cobra.Command, cfg *state.SimCfg) uint64 {
	if cfg.MaxTicks != 0 {
		return cfg.MaxTicks
	}
	ticks, _ := cmd.Flags().GetUint64("ticks")
	return ticks
}

// offlineLogger only reports warnings, the dump itself goes to stdout.
func offlineLogger(cfg *state.SimCfg, verbose bool) (*slog.Logger, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return core.NewLogger(*cfg, level)
}

// output opens path for writing, "-" being stdout.
func output(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "-" || path == "" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

func addSimFlags(cmd *cobra.Command, defTicks uint64) {
	cmd.Flags().Uint64P("seed", "s", 0, "random seed (0 picks one)")
	cmd.Flags().Uint64P("ticks", "t", defTicks, "number of ticks to run")
	cmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
