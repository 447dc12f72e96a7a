package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onyxstream/coordlog"
)

const appVersion = "0.1.0"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the coordlogd version",
		RunE: func(*cobra.Command, []string) error {
			fmt.Printf("%s %s (log version %d)\n", appName, appVersion, coordlog.CurrentLogVersion)
			return nil
		},
	}
}
