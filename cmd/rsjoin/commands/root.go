// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the rsjoin CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rsjoin",
		Short:         "Join new nodes to a MongoDB replica set",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Lambda handlers
	cmd.AddCommand(Provisioner())
	cmd.AddCommand(Gate())

	cmd.AddCommand(Converge())
	cmd.AddCommand(History())
	cmd.AddCommand(Version())

	return cmd
}
