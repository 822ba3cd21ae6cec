package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/weft/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a simulation config with the default tunables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return cmd.Usage()
		}
		name := args[0]
		if err := state.NameValidator(name); err != nil {
			return fmt.Errorf("invalid name %q: %w", name, err)
		}

		cfg := state.DefaultSimCfg()
		cfg.Name = name
		if seed, _ := cmd.Flags().GetUint64("seed"); seed != 0 {
			cfg.Seed = seed
		}

		outPath := cmd.Flag("output").Value.String()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(outPath); err == nil && !force {
			return fmt.Errorf("%s already exists, pass --force to overwrite it", outPath)
		}
		if err := state.WriteSimCfg(outPath, &cfg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
		return err
	},
	GroupID: "init",
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates the config given by --config and prints the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("expecting --config")
		}
		cfg, err := state.ReadSimCfg(configPath)
		if err != nil {
			return err
		}
		if err := state.SimConfigValidator(cfg); err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Config is valid\n%s", out)
		return err
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", "weft.yaml", "config output file path")
	newCmd.Flags().Uint64P("seed", "s", 0, "fixed random seed")
	newCmd.Flags().BoolP("force", "f", false, "overwrite an existing file")

	rootCmd.AddCommand(verifyCmd)
}
