package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/worksite/internal/remote"
	"github.com/mesh-intelligence/worksite/internal/session"
	"github.com/mesh-intelligence/worksite/internal/store"
	"github.com/mesh-intelligence/worksite/internal/validate"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

var (
	workerLabel  = store.Label{Singular: "worker", Plural: "workers"}
	projectLabel = store.Label{Singular: "project", Plural: "projects"}
)

// openSessions opens the session database in the data directory.
// The caller must Close it.
func (a *app) openSessions() (*session.Store, error) {
	st, err := session.Open(a.dataDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("open session store: %w", err))
	}
	return st, nil
}

// newClient builds a client for the configured server without a token.
func (a *app) newClient(opts ...remote.Option) (*remote.Client, error) {
	opts = append([]remote.Option{
		remote.WithTimeout(a.cfg.Timeout),
		remote.WithLogger(a.logger),
	}, opts...)
	c, err := remote.New(a.cfg.Server, opts...)
	if err != nil {
		return nil, userError(err)
	}
	return c, nil
}

// authedClient builds a client carrying the stored session token for the
// configured server.
func (a *app) authedClient(ctx context.Context) (*remote.Client, error) {
	st, err := a.openSessions()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	s, err := st.Load(ctx, a.cfg.Server)
	switch {
	case errors.Is(err, types.ErrNoSession):
		return nil, userError(fmt.Errorf("%w to %s; run \"worksite login\"", err, a.cfg.Server))
	case errors.Is(err, types.ErrExpired):
		return nil, userError(fmt.Errorf("%w; run \"worksite login\"", err))
	case err != nil:
		return nil, sysError(fmt.Errorf("load session: %w", err))
	}
	return a.newClient(remote.WithToken(s.Token))
}

func (a *app) workerStore(c *remote.Client) *store.Store[types.Worker, types.WorkerFilters] {
	return store.New[types.Worker, types.WorkerFilters](c.Workers(), workerLabel,
		store.WithLogger(a.logger),
		store.WithNotifier(a.notifier),
		store.WithPageSize(a.cfg.PageSize),
	)
}

func (a *app) projectStore(c *remote.Client) *store.Store[types.Project, types.ProjectFilters] {
	return store.New[types.Project, types.ProjectFilters](c.Projects(), projectLabel,
		store.WithLogger(a.logger),
		store.WithNotifier(a.notifier),
		store.WithPageSize(a.cfg.PageSize),
	)
}

// parseIDs parses positive entity IDs.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, userError(fmt.Errorf("%w: %q", types.ErrInvalidID, arg))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// isValidation reports whether err is a form validation failure.
func isValidation(err error) bool {
	var verrs validate.Errors
	return errors.As(err, &verrs)
}

// invalid prints each validation message and returns a user error.
func (a *app) invalid(err error) error {
	var verrs validate.Errors
	if !errors.As(err, &verrs) {
		return failed(err)
	}
	fmt.Fprintln(a.errOut, "Error: invalid input")
	for _, f := range verrs.Fields() {
		fmt.Fprintf(a.errOut, "  %s: %s\n", f, verrs[f])
	}
	return &exitError{code: exitUserError, err: err, reported: true}
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}
