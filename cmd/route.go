package main

import (
	"encoding/json"
	"fmt"

	"github.com/bwise1/gunaso/internal/forwarding"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <category> [province] [district]",
	Short: "Show which office a complaint would be forwarded to",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := forwarding.Load(cfg.ForwardingRulesFile)
		if err != nil {
			return err
		}

		var province, district string
		if len(args) > 1 {
			province = args[1]
		}
		if len(args) > 2 {
			district = args[2]
		}

		assignment, err := engine.Assign(args[0], province, district)
		if err != nil {
			return fmt.Errorf("%w (known categories: %v)", err, engine.Categories())
		}

		out, err := json.MarshalIndent(assignment, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
