// Package redialcmder
package redialcmder

import (
	"github.com/spf13/cobra"

	servecmder "github.com/redialhq/redial/cmd/redial/serve"
	versioncmder "github.com/redialhq/redial/cmd/version"
)

const redialLongDesc string = `Redial gives voice agents a memory of their callers.

Run the service using:
  redial serve         Run the webhook gateway and processing workers`

const redialShortDesc string = "Redial - Caller Memory for Voice Agents"

func NewRedialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redial",
		Short: redialShortDesc,
		Long:  redialLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
