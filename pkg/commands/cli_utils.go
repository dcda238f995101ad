package commands

import (
	"github.com/spf13/cobra"
)

// NewUtilityCommands creates the operational commands.
func NewUtilityCommands() []*cobra.Command {
	return []*cobra.Command{
		newMigrateCmd(),
		newBootstrapCmd(),
		newPolicyCmd(),
	}
}
