package main

import (
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newUpdateOriginCommand(logger pslog.Logger) *cobra.Command {
	var messageID int64
	var replicaRaw string
	cmd := &cobra.Command{
		Use:   "update-origin",
		Short: "CAS-advance the origin snapshot to a higher message id",
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
			return b.UpdateOrigin(cmd.Context(), replica, messageID)
		},
	}
	cmd.Flags().Int64Var(&messageID, "message-id", 0, "message id the replica was serialized at")
	cmd.Flags().StringVar(&replicaRaw, "replica", "{}", "serialized replica (YAML)")
	_ = cmd.MarkFlagRequired("message-id")
	return cmd
}
