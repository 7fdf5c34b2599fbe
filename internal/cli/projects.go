package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/worksite/internal/notify"
	"github.com/mesh-intelligence/worksite/internal/store"
	"github.com/mesh-intelligence/worksite/internal/validate"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "List and manage projects and their workers",
	}
	cmd.AddCommand(
		a.projectsListCmd(),
		a.projectsGetCmd(),
		a.projectsAddCmd(),
		a.projectsUpdateCmd(),
		a.projectsDeleteCmd(),
		a.projectsAssignCmd(),
		a.projectsUnassignCmd(),
		a.projectsAvailableCmd(),
	)
	return cmd
}

func (a *app) projectsListCmd() *cobra.Command {
	var (
		f     types.ProjectFilters
		pages pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long: `List fetches one page of projects matching the filters.

Example:
  worksite projects list --status active
  worksite projects list --search bridge --sort-by start_date`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Status != "" && !validStatus(f.Status) {
				return userError(fmt.Errorf("unknown status %q (valid: %s)", f.Status, strings.Join(types.ProjectStatuses, ", ")))
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			st := a.projectStore(c)
			if _, err := st.Fetch(cmd.Context(), store.Query[types.ProjectFilters]{
				Filters:  f,
				Page:     pages.page,
				PageSize: pages.pageSize,
			}); err != nil {
				return notified(err)
			}

			state := st.State()
			if a.flags.jsonMode {
				return a.printJSON(types.Page[types.Project]{
					Data:     state.Items,
					Total:    state.Pagination.Total,
					Page:     state.Pagination.Page,
					PageSize: state.Pagination.PageSize,
				})
			}
			return a.printProjects(state.Items, state.Pagination)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "filter by name")
	fl.StringVar(&f.Status, "status", "", "filter by status ("+strings.Join(types.ProjectStatuses, ", ")+")")
	fl.StringVar(&f.Search, "search", "", "match name or description")
	fl.StringVar(&f.SortBy, "sort-by", "", "sort field (name, status, start_date)")
	fl.StringVar(&f.SortOrder, "sort-order", "", "sort order (asc, desc)")
	pages.register(cmd)
	return cmd
}

func validStatus(s string) bool {
	return slices.Contains(types.ProjectStatuses, s)
}

func (a *app) projectsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one project and its workers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.Projects().Get(cmd.Context(), ids[0])
			if err != nil {
				return failed(fmt.Errorf("get project %d: %w", ids[0], err))
			}
			if a.flags.jsonMode {
				return a.printJSON(p)
			}
			return a.printProject(p)
		},
	}
}

var projectFields = []string{"name", "description", "status", "start-date", "end-date", "latitude", "longitude"}

// projectFormFlags registers the project form fields as flags.
func projectFormFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.String("name", "", "project name (2-100 characters)")
	fl.String("description", "", "description (10-500 characters)")
	fl.String("status", "", "status ("+strings.Join(types.ProjectStatuses, ", ")+")")
	fl.String("start-date", "", "start date, YYYY-MM-DD")
	fl.String("end-date", "", "end date, YYYY-MM-DD")
	fl.String("latitude", "", "site latitude (-90 to 90)")
	fl.String("longitude", "", "site longitude (-180 to 180)")
}

func (a *app) projectsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project",
		Long: `Add validates the project and creates it on the server.

Example:
  worksite projects add --name "Harbor bridge" --description "Repaint the harbor bridge" \
    --start-date 2026-03-01 --latitude 45.81 --longitude 15.98`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := validate.Project(formValues(cmd, map[string]string{}, projectFields...))
			if err != nil {
				return a.invalid(err)
			}

			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			created, err := a.projectStore(c).Create(cmd.Context(), p)
			if err != nil {
				return notified(err)
			}
			if a.flags.jsonMode {
				return a.printJSON(created)
			}
			fmt.Fprintf(a.out, "%d\n", created.ID)
			return nil
		},
	}
	projectFormFlags(cmd)
	return cmd
}

func (a *app) projectsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a project",
		Long: `Update changes the given fields of a project and keeps the others.

Example:
  worksite projects update 3 --status completed --end-date 2026-10-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			current, err := c.Projects().Get(cmd.Context(), ids[0])
			if err != nil {
				return failed(fmt.Errorf("get project %d: %w", ids[0], err))
			}

			p, err := validate.Project(formValues(cmd, validate.ProjectValues(current), projectFields...))
			if err != nil {
				return a.invalid(err)
			}
			p.ID = current.ID

			updated, err := a.projectStore(c).Update(cmd.Context(), p)
			if err != nil {
				return notified(err)
			}
			if a.flags.jsonMode {
				return a.printJSON(updated)
			}
			return nil
		},
	}
	projectFormFlags(cmd)
	return cmd
}

func (a *app) projectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete one or more projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			st := a.projectStore(c)
			if len(ids) == 1 {
				err = st.Delete(cmd.Context(), ids[0])
			} else {
				err = st.DeleteMany(cmd.Context(), ids)
			}
			if err != nil {
				return notified(err)
			}
			return nil
		},
	}
}

func (a *app) projectsAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <project-id> <worker-id>",
		Short: "Assign a worker to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.Projects().AssignWorker(cmd.Context(), ids[0], ids[1])
			if err != nil {
				a.notifier.Notify(notify.Error("Failed to assign worker: " + err.Error()))
				return notified(err)
			}
			a.notifier.Notify(notify.Success("Worker assigned to project successfully!"))
			if a.flags.jsonMode {
				return a.printJSON(p)
			}
			return nil
		},
	}
}

func (a *app) projectsUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <project-id> <worker-id>",
		Short: "Remove a worker from a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Projects().UnassignWorker(cmd.Context(), ids[0], ids[1]); err != nil {
				a.notifier.Notify(notify.Error("Failed to remove worker: " + err.Error()))
				return notified(err)
			}
			a.notifier.Notify(notify.Success("Worker removed from project successfully!"))
			return nil
		},
	}
}

func (a *app) projectsAvailableCmd() *cobra.Command {
	var pages pageFlags
	cmd := &cobra.Command{
		Use:   "available <project-id>",
		Short: "List workers not yet assigned to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			size := pages.pageSize
			if size <= 0 {
				size = a.cfg.PageSize
			}
			page, err := c.Projects().AvailableWorkers(cmd.Context(), ids[0], types.PageRequest{Page: pages.page, PageSize: size})
			if err != nil {
				return failed(fmt.Errorf("available workers: %w", err))
			}
			if a.flags.jsonMode {
				return a.printJSON(page)
			}
			return a.printWorkers(page.Data, types.Pagination{Page: page.Page, PageSize: page.PageSize, Total: page.Total})
		},
	}
	pages.register(cmd)
	return cmd
}

func (a *app) printProjects(projects []types.Project, p types.Pagination) error {
	if len(projects) == 0 {
		fmt.Fprintln(a.out, "No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTART\tEND\tWORKERS")
	for _, pr := range projects {
		end := pr.EndDate
		if end == "" {
			end = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n", pr.ID, truncate(pr.Name, 40), pr.Status, pr.StartDate, end, len(pr.Workers))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	a.printPagination(p, "project")
	return nil
}

func (a *app) printProject(p types.Project) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", p.ID)
	fmt.Fprintf(w, "Name:\t%s\n", p.Name)
	fmt.Fprintf(w, "Status:\t%s\n", p.Status)
	fmt.Fprintf(w, "Description:\t%s\n", p.Description)
	fmt.Fprintf(w, "Dates:\t%s to %s\n", p.StartDate, valueOr(p.EndDate, "open"))
	fmt.Fprintf(w, "Location:\t%.5f, %.5f\n", p.Latitude, p.Longitude)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	return a.printWorkers(p.Workers, types.Pagination{})
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
