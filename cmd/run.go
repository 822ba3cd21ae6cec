package cmd

import (
	"log/slog"

	"github.com/encodeous/weft/core"
	"github.com/encodeous/weft/state"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation in real time",
	Long:  `Runs the engine on its main loop, one tick per tick_interval, until interrupted, until --ticks ticks have run or until --duration has passed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if p, _ := cmd.Flags().GetString("log"); p != "" {
			cfg.LogPath = p
		}
		if cmd.Flags().Changed("duration") {
			cfg.Duration, _ = cmd.Flags().GetDuration("duration")
		}
		if err := state.SimConfigValidator(cfg); err != nil {
			return err
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		core.SetupDebugging()
		return core.Start(*cfg, level, nil)
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)

	addSimFlags(runCmd, 0)
	runCmd.Flags().StringP("log", "l", "", "also write logs to this file")
	runCmd.Flags().Duration("duration", 0, "stop after this much wall-clock time")
	runCmd.Flags().BoolVarP(&state.DBG_debug, "debug", "d", false, "Serve pprof, expvar and prometheus metrics on "+state.DebugAddr)
	runCmd.Flags().BoolVarP(&state.DBG_log_router, "lroute", "r", false, "Write packet router events to console")
	runCmd.Flags().BoolVarP(&state.DBG_log_apsp, "lapsp", "a", false, "Write topology and APSP changes to console")
}
