package cmd

import (
	"fmt"

	"github.com/encodeous/weft/core"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Runs a number of ticks offline and prints the engine state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger, err := offlineLogger(cfg, verbose)
		if err != nil {
			return err
		}
		e, err := core.Simulate(*cfg, logger, offlineTicks(cmd, cfg))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), core.Inspect(e))
		return err
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	addSimFlags(inspectCmd, 600)
}
