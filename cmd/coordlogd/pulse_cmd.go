package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
)

func newPulseCommand(logger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "liveness pulse operations",
	}
	register := &cobra.Command{
		Use:   "register [peer-id]",
		Short: "register a pulse and hold it until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			peerID := uuid.NewString()
			if len(args) == 1 {
				peerID = args[0]
			}
			b, err := openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer b.Close()
			if err := b.RegisterPulse(ctx, peerID); err != nil {
				return err
			}
			fmt.Println(peerID)
			<-ctx.Done()
			return nil
		},
	}
	watch := &cobra.Command{
		Use:   "watch <peer-id>",
		Short: "block until the peer's pulse is deleted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer b.Close()
			gone := make(chan bool, 1)
			if err := b.OnPulseDelete(ctx, args[0], gone); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-gone:
				fmt.Println("deleted")
				return nil
			}
		},
	}
	exists := &cobra.Command{
		Use:   "exists <peer-id>",
		Short: "report whether the peer's pulse is present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			ok, err := b.GroupExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
	cmd.AddCommand(register, watch, exists)
	return cmd
}

func newPSCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "list peers with a live pulse",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			peers, err := b.ListPulses(cmd.Context())
			if err != nil {
				return err
			}
			for _, peer := range peers {
				fmt.Println(peer)
			}
			return nil
		},
	}
}
