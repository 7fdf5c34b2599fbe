package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/worksite/internal/store"
	"github.com/mesh-intelligence/worksite/internal/validate"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

func (a *app) workersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workers",
		Aliases: []string{"worker"},
		Short:   "List and manage workers",
	}
	cmd.AddCommand(
		a.workersListCmd(),
		a.workersGetCmd(),
		a.workersAddCmd(),
		a.workersUpdateCmd(),
		a.workersDeleteCmd(),
	)
	return cmd
}

// pageFlags are the pagination flags shared by list commands.
type pageFlags struct {
	page     int
	pageSize int
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&p.pageSize, "page-size", 0, "entities per page (default: page_size from config)")
}

func (a *app) workersListCmd() *cobra.Command {
	var (
		f     types.WorkerFilters
		pages pageFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workers",
		Long: `List fetches one page of workers matching the filters.

Example:
  worksite workers list
  worksite workers list --position mason --min-age 30
  worksite workers list --sort-by salary --sort-order desc --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			st := a.workerStore(c)
			if _, err := st.Fetch(cmd.Context(), store.Query[types.WorkerFilters]{
				Filters:  f,
				Page:     pages.page,
				PageSize: pages.pageSize,
			}); err != nil {
				return notified(err)
			}

			state := st.State()
			if a.flags.jsonMode {
				return a.printJSON(types.Page[types.Worker]{
					Data:     state.Items,
					Total:    state.Pagination.Total,
					Page:     state.Pagination.Page,
					PageSize: state.Pagination.PageSize,
				})
			}
			return a.printWorkers(state.Items, state.Pagination)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Search, "search", "", "match name or position")
	fl.StringVar(&f.Position, "position", "", "filter by position")
	fl.IntVar(&f.MinAge, "min-age", 0, "minimum age")
	fl.IntVar(&f.MaxAge, "max-age", 0, "maximum age")
	fl.Int64Var(&f.MinSalary, "min-salary", 0, "minimum salary")
	fl.Int64Var(&f.MaxSalary, "max-salary", 0, "maximum salary")
	fl.StringVar(&f.SortBy, "sort-by", "", "sort field (name, age, position, salary)")
	fl.StringVar(&f.SortOrder, "sort-order", "", "sort order (asc, desc)")
	pages.register(cmd)
	return cmd
}

func (a *app) workersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one worker",
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
			w, err := c.Workers().Get(cmd.Context(), ids[0])
			if err != nil {
				return failed(fmt.Errorf("get worker %d: %w", ids[0], err))
			}
			if a.flags.jsonMode {
				return a.printJSON(w)
			}
			return a.printWorkers([]types.Worker{w}, types.Pagination{})
		},
	}
}

// workerFormFlags registers the worker form fields as flags.
func workerFormFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.String("name", "", "full name (2-50 characters)")
	fl.String("age", "", "age (18-100)")
	fl.String("position", "", "position (2-50 characters)")
	fl.String("salary", "", "salary, a non-negative integer")
}

// formValues overlays the flags the user set onto values.
func formValues(cmd *cobra.Command, values map[string]string, fields ...string) map[string]string {
	for _, name := range fields {
		flag := cmd.Flags().Lookup(name)
		if flag != nil && flag.Changed {
			values[flagField(name)] = flag.Value.String()
		}
	}
	return values
}

// flagField maps a flag name to its form field, e.g. start-date to start_date.
func flagField(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

var workerFields = []string{"name", "age", "position", "salary"}

func (a *app) workersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a worker",
		Long: `Add validates the worker and creates it on the server.

Example:
  worksite workers add --name "Ann Lee" --age 30 --position Mason --salary 40000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := validate.Worker(formValues(cmd, map[string]string{}, workerFields...))
			if err != nil {
				return a.invalid(err)
			}

			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			created, err := a.workerStore(c).Create(cmd.Context(), w)
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
	workerFormFlags(cmd)
	return cmd
}

func (a *app) workersUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a worker",
		Long: `Update changes the given fields of a worker and keeps the others.

Example:
  worksite workers update 7 --salary 42000`,
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
			current, err := c.Workers().Get(cmd.Context(), ids[0])
			if err != nil {
				return failed(fmt.Errorf("get worker %d: %w", ids[0], err))
			}

			w, err := validate.Worker(formValues(cmd, validate.WorkerValues(current), workerFields...))
			if err != nil {
				return a.invalid(err)
			}
			w.ID = current.ID

			updated, err := a.workerStore(c).Update(cmd.Context(), w)
			if err != nil {
				return notified(err)
			}
			if a.flags.jsonMode {
				return a.printJSON(updated)
			}
			return nil
		},
	}
	workerFormFlags(cmd)
	return cmd
}

func (a *app) workersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete one or more workers",
		Long: `Delete removes the given workers. With several IDs the deletions run as
one batch; if any of them fails the remaining list is re-read from the
server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			c, err := a.authedClient(cmd.Context())
			if err != nil {
				return err
			}
			st := a.workerStore(c)
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

func (a *app) printWorkers(workers []types.Worker, p types.Pagination) error {
	if len(workers) == 0 {
		fmt.Fprintln(a.out, "No workers found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAGE\tPOSITION\tSALARY")
	for _, wk := range workers {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", wk.ID, truncate(wk.Name, 40), wk.Age, wk.Position, strconv.FormatInt(wk.Salary, 10))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	a.printPagination(p, "worker")
	return nil
}

// printPagination prints the page footer of a listing; a zero Pagination
// prints nothing.
func (a *app) printPagination(p types.Pagination, noun string) {
	if p.PageSize == 0 {
		return
	}
	pages := max(p.Pages(), 1)
	fmt.Fprintf(a.out, "Page %d of %d, %d %s(s)\n", p.Page, pages, p.Total, noun)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
