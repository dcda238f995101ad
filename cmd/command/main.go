package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipsco/fleet/pkg/commands"
	"github.com/ipsco/fleet/pkg/configuration"
)

func main() {
	root := &cobra.Command{
		Use:           "command",
		Short:         "Fleet operational commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			configuration.Use().Unload()
		},
	}
	root.AddCommand(commands.NewUtilityCommands()...)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
