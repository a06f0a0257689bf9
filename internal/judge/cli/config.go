package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/build-flow-labs/judge/internal/judge/config"
)

var (
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the judge configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (token redacted)",
	RunE:  runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List the environment variables read by the judge",
	RunE:  runConfigEnv,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", config.DefaultFile, "Destination file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().WriteFile(configInitPath, configInitForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configInitPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	data, err := e.cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) error {
	usage, err := config.Usage()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), usage)
	return nil
}
