package main

import (
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newInspectCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "print the tenancy's subtree roots and their child counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer b.Close()
			report := map[string]any{}
			for _, root := range b.Paths().SubtreeRoots() {
				st, err := b.Client().Exists(ctx, root, nil)
				if err != nil || st == nil {
					report[root] = "absent"
					continue
				}
				report[root] = st.EntryCount
			}
			origin, err := b.ReadOrigin(ctx)
			if err == nil {
				report["origin-message-id"] = origin.MessageID
			}
			return printYAML(report)
		},
	}
}
