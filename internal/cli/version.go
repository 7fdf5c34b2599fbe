package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/worksite"

// Version is the release version, set at build time with
// -ldflags "-X github.com/mesh-intelligence/worksite/internal/cli.Version=...".
var Version = "0.1.0"

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the worksite version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "worksite v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
