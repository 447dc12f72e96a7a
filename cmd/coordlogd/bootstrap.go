package main

import (
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newBootstrapCommand(logger pslog.Logger) *cobra.Command {
	var replicaRaw string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "create the tenancy's path skeleton and seed the origin snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			replica, err := parseValue(replicaRaw)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			return b.Bootstrap(cmd.Context(), replica)
		},
	}
	cmd.Flags().StringVar(&replicaRaw, "replica", "{}", "base replica seeded into the origin snapshot (YAML)")
	return cmd
}
