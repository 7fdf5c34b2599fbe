package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/worksite/internal/store"
	"github.com/mesh-intelligence/worksite/internal/tui"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse workers interactively",
		Long: `Browse opens a full-screen worker table.

Keys: n/p next and previous page, r refresh, d delete the selected worker,
/ search, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}

			// Notifications go to the status line instead of stderr while
			// the screen is taken over.
			toasts := &tui.Toasts{}
			st := store.New[types.Worker, types.WorkerFilters](c.Workers(), workerLabel,
				store.WithLogger(a.logger),
				store.WithNotifier(toasts),
				store.WithPageSize(a.cfg.PageSize),
			)

			err = tui.Run(cmd.Context(), st, toasts, tea.WithInput(a.in), tea.WithOutput(a.out))
			if err != nil {
				return sysError(err)
			}
			return nil
		},
	}
}
