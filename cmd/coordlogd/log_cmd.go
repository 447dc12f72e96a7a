package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/onyxstream/coordlog"
)

func newWriteLogCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "write-log <value>",
		Short: "append a log entry and print its assigned position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[0])
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			position, err := b.WriteLogEntry(cmd.Context(), value)
			if err != nil {
				return err
			}
			fmt.Println(position)
			return nil
		},
	}
}

func newTailCommand(logger pslog.Logger) *cobra.Command {
	var count, buffer int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "subscribe to the log and print entries as they arrive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer b.Close()
			out := make(chan coordlog.Entry, buffer)
			initial, sub, err := b.Subscribe(ctx, out)
			if err != nil {
				return err
			}
			defer sub.Stop()
			if err := printYAML(map[string]any{
				"initial-replica": initial.Replica,
				"log-version":     initial.Parameters.LogVersion,
			}); err != nil {
				return err
			}
			delivered := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-out:
					if e.Err != nil {
						return e.Err
					}
					entry := map[string]any{"op": e.Op, "message-id": e.MessageID}
					switch e.Op {
					case coordlog.OpSetReplica:
						entry["replica"] = e.Replica
					default:
						entry["created-at"] = e.CreatedAt
						entry["value"] = e.Value
						delivered++
					}
					if err := printYAML([]any{entry}); err != nil {
						return err
					}
					if count > 0 && delivered >= count {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many log entries (0 tails forever)")
	cmd.Flags().IntVar(&buffer, "buffer", 64, "output channel buffer size")
	return cmd
}

func newGCCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "gc <position>",
		Short: "delete the log entry at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("parse position %q: %w", args[0], err)
			}
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			return b.GCLogEntry(cmd.Context(), position)
		},
	}
}
