// Package parleycmder
package parleycmder

import (
	"github.com/spf13/cobra"

	servecmder "github.com/parleylabs/parley/cmd/parley/serve"
	versioncmder "github.com/parleylabs/parley/cmd/version"
)

const parleyLongDesc string = `Parley is a conversational assistant relay.

It forwards messages with per-session history to a remote inference
endpoint and can render replies as synthesized speech.

Run the relay using:
  parley serve         Run the relay server`

const parleyShortDesc string = "Parley - Conversational Assistant Relay"

func NewParleyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parley",
		Short: parleyShortDesc,
		Long:  parleyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
