package main

import (
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/onyxstream/coordlog"
)

func newWriteChunkCommand(logger pslog.Logger) *cobra.Command {
	var valueRaw string
	cmd := &cobra.Command{
		Use:   "write-chunk <kind> <id> [sub-id]",
		Short: "store a typed artifact",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := chunkKindArg(args[0])
			if err != nil {
				return err
			}
			value, err := parseValue(valueRaw)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			return b.WriteChunk(cmd.Context(), kind, args[1], value, args[2:]...)
		},
	}
	cmd.Flags().StringVar(&valueRaw, "value", "{}", "chunk payload (YAML)")
	return cmd
}

func newReadChunkCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "read-chunk <kind> <id> [sub-id]",
		Short: "read a typed artifact and print it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := chunkKindArg(args[0])
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			value, err := b.ReadChunk(cmd.Context(), kind, args[1], args[2:]...)
			if err != nil {
				return err
			}
			return printYAML(value)
		},
	}
}

func newForceWriteChunkCommand(logger pslog.Logger) *cobra.Command {
	var valueRaw string
	cmd := &cobra.Command{
		Use:   "force-write-chunk <id>",
		Short: "CAS-overwrite a chunk artifact, creating it when absent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(valueRaw)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer b.Close()
			return b.ForceWriteChunk(cmd.Context(), coordlog.ChunkChunk, args[0], value)
		},
	}
	cmd.Flags().StringVar(&valueRaw, "value", "{}", "chunk payload (YAML)")
	return cmd
}
