package cmd

import (
	"github.com/encodeous/weft/core"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Runs a number of ticks offline and writes the renderer snapshot as YAML",
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
		out, err := yaml.Marshal(e.Snapshot())
		if err != nil {
			return err
		}

		w, err := output(cmd, cmd.Flag("output").Value.String())
		if err != nil {
			return err
		}
		defer w.Close()
		_, err = w.Write(out)
		return err
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	addSimFlags(snapshotCmd, 600)
	snapshotCmd.Flags().StringP("output", "o", "-", "output file, - for stdout")
}
