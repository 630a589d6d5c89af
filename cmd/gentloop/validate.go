package main

import (
	"fmt"

	"github.com/rickchristie/gentloop/config"
	"github.com/rickchristie/gentloop/drivers/scripted"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and an optional scenario file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if _, err := config.Load(cfgPath); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "configuration ok")

			if scenario == "" {
				return nil
			}
			s, err := scripted.LoadScenarioFile(scenario)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "scenario ok: %d steps, %d child steps\n", len(s.Steps), len(s.ChildSteps))
			return nil
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "YAML file of scripted decisions")
	return cmd
}
