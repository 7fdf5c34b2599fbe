package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/worksite/internal/apitest"
	"github.com/mesh-intelligence/worksite/internal/session"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

// testEnv runs the CLI in-process against a fake API with isolated
// config and data directories.
type testEnv struct {
	t         *testing.T
	srv       *apitest.Server
	user      types.User
	configDir string
	dataDir   string
	stdin     string
}

// result holds the outcome of one CLI invocation.
type result struct {
	code   int
	stdout string
	stderr string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := apitest.New(t)
	return &testEnv{
		t:         t,
		srv:       srv,
		user:      srv.AddUser("alice", "secret1", types.RoleUser),
		configDir: t.TempDir(),
		dataDir:   t.TempDir(),
	}
}

func (e *testEnv) run(args ...string) result {
	e.t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(strings.NewReader(e.stdin), &out, &errOut)
	a.logger = zaptest.NewLogger(e.t)

	global := []string{"--config-dir", e.configDir, "--data-dir", e.dataDir, "--server", e.srv.URL}
	code := a.run(context.Background(), append(global, args...))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// mustRun runs the CLI and fails the test on a non-zero exit code.
func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	require.Equal(e.t, exitSuccess, r.code, "worksite %v\nstdout: %s\nstderr: %s", args, r.stdout, r.stderr)
	return r
}

// loggedIn returns an environment with a stored session for alice.
func loggedIn(t *testing.T) *testEnv {
	t.Helper()
	e := newTestEnv(t)
	e.mustRun("login", "-u", "alice", "-p", "secret1")
	return e
}

func parseJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func TestVersion(t *testing.T) {
	e := newTestEnv(t)
	r := e.mustRun("version")
	assert.Equal(t, "worksite v"+Version+"\nmodule: "+modulePath+"\n", r.stdout)
}

func TestInit(t *testing.T) {
	e := newTestEnv(t)

	r := e.mustRun("init")
	path := filepath.Join(e.configDir, "config.yaml")
	assert.Contains(t, r.stdout, "Wrote "+path)
	assert.Contains(t, r.stdout, "Session database in "+e.dataDir)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# worksite CLI configuration"))

	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, e.srv.URL, cfg.Server)
	assert.Equal(t, "10s", cfg.Timeout)
	assert.Equal(t, types.DefaultPageSize, cfg.PageSize)

	_, err = os.Stat(filepath.Join(e.dataDir, session.DBFileName))
	assert.NoError(t, err)

	r = e.mustRun("init")
	assert.Contains(t, r.stdout, "Kept existing "+path)
}

func TestConfigFileIsRead(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"),
		[]byte("page_size: 0\n"), 0o644))

	r := e.run("version")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "invalid config: page size must be positive")
}

func TestLoginAndWhoami(t *testing.T) {
	e := newTestEnv(t)

	r := e.mustRun("login", "-u", "alice", "-p", "secret1")
	assert.Equal(t, "Logged in as alice\n", r.stdout)

	r = e.mustRun("whoami")
	assert.Contains(t, r.stdout, "alice (id 1, user) on "+e.srv.URL)
	assert.Contains(t, r.stdout, "Session expires")

	r = e.mustRun("--json", "whoami")
	s := parseJSON[session.Session](t, r.stdout)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, e.srv.URL, s.Server)
	assert.Equal(t, e.user.ID, s.UserID)
	assert.NotContains(t, r.stdout, "token", "tokens stay out of the output")

	r = e.mustRun("whoami", "--all")
	assert.Contains(t, r.stdout, "SERVER")
	assert.Contains(t, r.stdout, e.srv.URL)
}

func TestLoginPasswordFromStdin(t *testing.T) {
	e := newTestEnv(t)
	e.stdin = "secret1\n"
	r := e.mustRun("login", "-u", "alice")
	assert.Equal(t, "Logged in as alice\n", r.stdout)
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t)

	r := e.run("login", "-u", "alice", "-p", "wrong")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "Invalid username or password")

	r = e.run("login", "-p", "secret1")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "Error: invalid input")
	assert.Contains(t, r.stderr, "username: Username is required.")
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	r := e.mustRun("register", "-u", "bob", "--email", "bob@example.com", "-p", "hunter22")
	assert.Equal(t, "Registered and logged in as bob\n", r.stdout)
	r = e.mustRun("whoami")
	assert.Contains(t, r.stdout, "bob")

	r = e.run("register", "-u", "bob", "--email", "bob@example.com", "-p", "hunter22")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "Username already taken")

	r = e.run("register", "-u", "bo", "--email", "not-an-email", "-p", "123")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "email:")
	assert.Contains(t, r.stderr, "password:")
	assert.Contains(t, r.stderr, "username:")
}

func TestLogout(t *testing.T) {
	e := loggedIn(t)

	r := e.mustRun("logout")
	assert.Equal(t, "Logged out of "+e.srv.URL+"\n", r.stdout)

	r = e.run("whoami")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, e.srv.URL)
}

func TestCommandsNeedSession(t *testing.T) {
	e := newTestEnv(t)

	for _, args := range [][]string{
		{"workers", "list"},
		{"projects", "list"},
		{"browse"},
	} {
		r := e.run(args...)
		assert.Equal(t, exitUserError, r.code, "%v", args)
		assert.Contains(t, r.stderr, `run "worksite login"`, "%v", args)
	}
	assert.Zero(t, e.srv.CountRequests(http.MethodGet, "/api/"))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	r := e.mustRun("health")
	assert.Equal(t, e.srv.URL+" is healthy\n", r.stdout)

	e.srv.FailAll(http.MethodGet, "/health", http.StatusServiceUnavailable, "maintenance")
	r = e.run("health")
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "maintenance")
}

func TestWorkerLifecycle(t *testing.T) {
	e := loggedIn(t)

	r := e.mustRun("workers", "add", "--name", "Ann Lee", "--age", "30", "--position", "Mason", "--salary", "40000")
	id := strings.TrimSpace(r.stdout)
	assert.NotEmpty(t, id)
	assert.Contains(t, r.stderr, "Worker added successfully!")

	r = e.mustRun("workers", "list")
	assert.Contains(t, r.stdout, "NAME")
	assert.Contains(t, r.stdout, "Ann Lee")
	assert.Contains(t, r.stdout, "Page 1 of 1, 1 worker(s)")

	r = e.mustRun("workers", "update", id, "--salary", "42000")
	assert.Contains(t, r.stderr, "Worker updated successfully!")

	r = e.mustRun("--json", "workers", "get", id)
	w := parseJSON[types.Worker](t, r.stdout)
	assert.Equal(t, "Ann Lee", w.Name)
	assert.Equal(t, 30, w.Age)
	assert.Equal(t, int64(42000), w.Salary)

	r = e.mustRun("workers", "delete", id)
	assert.Contains(t, r.stderr, "Worker deleted successfully")

	r = e.mustRun("workers", "list")
	assert.Equal(t, "No workers found.\n", r.stdout)
}

func TestWorkersListFiltersAndJSON(t *testing.T) {
	e := loggedIn(t)
	for _, w := range []types.Worker{
		{Name: "Ann Lee", Age: 30, Position: "Mason", Salary: 40000},
		{Name: "Bo Chen", Age: 45, Position: "Welder", Salary: 52000},
		{Name: "Cy Diaz", Age: 52, Position: "Mason", Salary: 61000},
	} {
		e.srv.SeedWorker(e.user, w)
	}

	r := e.mustRun("--json", "workers", "list", "--position", "mason", "--min-age", "40")
	page := parseJSON[types.Page[types.Worker]](t, r.stdout)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Cy Diaz", page.Data[0].Name)
	assert.Equal(t, 1, page.Total)

	r = e.mustRun("workers", "list", "--page-size", "2", "--page", "2", "--sort-by", "name")
	assert.Contains(t, r.stdout, "Cy Diaz")
	assert.NotContains(t, r.stdout, "Ann Lee")
	assert.Contains(t, r.stdout, "Page 2 of 2, 3 worker(s)")
}

func TestWorkerValidation(t *testing.T) {
	e := loggedIn(t)

	r := e.run("workers", "add", "--name", "A", "--age", "17", "--position", "Mason", "--salary", "abc")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "Error: invalid input")
	assert.Contains(t, r.stderr, "name: Name must be at least 2 characters.")
	assert.Contains(t, r.stderr, "age: Age must be at least 18.")
	assert.Contains(t, r.stderr, "salary: Salary must be a number.")
	assert.Zero(t, e.srv.CountRequests(http.MethodPost, "/api/workers"))
}

func TestWorkerErrors(t *testing.T) {
	e := loggedIn(t)

	r := e.run("workers", "get", "abc")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "invalid entity ID")

	r = e.run("workers", "get", "999")
	assert.Equal(t, exitUserError, r.code)

	e.srv.FailAll(http.MethodGet, "/api/workers", http.StatusInternalServerError, "database down")
	r = e.run("workers", "list")
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "Error fetching workers: database down")
	assert.NotContains(t, r.stderr, "Error: ", "store failures are shown once")
}

func TestWorkersDeleteMany(t *testing.T) {
	e := loggedIn(t)
	a := e.srv.SeedWorker(e.user, types.Worker{Name: "Ann Lee", Age: 30, Position: "Mason"})
	b := e.srv.SeedWorker(e.user, types.Worker{Name: "Bo Chen", Age: 45, Position: "Welder"})

	r := e.mustRun("workers", "delete", itoa(a.ID), itoa(b.ID))
	assert.Contains(t, r.stderr, "2 worker(s) deleted successfully!")
	_, ok := e.srv.Worker(a.ID)
	assert.False(t, ok)
}

func TestWorkersDeleteManyPartialFailure(t *testing.T) {
	e := loggedIn(t)
	a := e.srv.SeedWorker(e.user, types.Worker{Name: "Ann Lee", Age: 30, Position: "Mason"})
	b := e.srv.SeedWorker(e.user, types.Worker{Name: "Bo Chen", Age: 45, Position: "Welder"})
	e.srv.FailAll(http.MethodDelete, "/api/workers/"+itoa(b.ID), http.StatusInternalServerError, "locked")

	r := e.run("workers", "delete", itoa(a.ID), itoa(b.ID))
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "Failed to delete some workers")
	assert.Equal(t, 1, e.srv.CountRequests(http.MethodGet, "/api/workers"), "list re-read after the failure")

	_, ok := e.srv.Worker(b.ID)
	assert.True(t, ok)
}

func TestProjectLifecycle(t *testing.T) {
	e := loggedIn(t)
	w := e.srv.SeedWorker(e.user, types.Worker{Name: "Ann Lee", Age: 30, Position: "Mason", Salary: 40000})

	r := e.mustRun("projects", "add", "--name", "Harbor bridge", "--description", "Repaint the harbor bridge",
		"--start-date", "2026-03-01", "--latitude", "45.81", "--longitude", "15.98")
	pid := strings.TrimSpace(r.stdout)
	assert.Contains(t, r.stderr, "Project added successfully!")

	r = e.mustRun("projects", "list", "--status", types.ProjectActive)
	assert.Contains(t, r.stdout, "Harbor bridge")
	assert.Contains(t, r.stdout, "Page 1 of 1, 1 project(s)")

	r = e.mustRun("projects", "available", pid)
	assert.Contains(t, r.stdout, "Ann Lee")

	r = e.mustRun("projects", "assign", pid, itoa(w.ID))
	assert.Contains(t, r.stderr, "Worker assigned to project successfully!")

	r = e.run("projects", "assign", pid, itoa(w.ID))
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "Failed to assign worker:")

	r = e.mustRun("projects", "get", pid)
	assert.Contains(t, r.stdout, "Harbor bridge")
	assert.Contains(t, r.stdout, "2026-03-01 to open")
	assert.Contains(t, r.stdout, "Ann Lee")

	r = e.mustRun("projects", "available", pid)
	assert.Equal(t, "No workers found.\n", r.stdout)

	r = e.mustRun("projects", "unassign", pid, itoa(w.ID))
	assert.Contains(t, r.stderr, "Worker removed from project successfully!")

	r = e.mustRun("projects", "update", pid, "--status", types.ProjectCompleted, "--end-date", "2026-09-30")
	assert.Contains(t, r.stderr, "Project updated successfully!")
	r = e.mustRun("--json", "projects", "get", pid)
	p := parseJSON[types.Project](t, r.stdout)
	assert.Equal(t, types.ProjectCompleted, p.Status)
	assert.Equal(t, "2026-09-30", p.EndDate)
	assert.Empty(t, p.Workers)

	e.mustRun("projects", "delete", pid)
	r = e.mustRun("projects", "list")
	assert.Equal(t, "No projects found.\n", r.stdout)
}

func TestProjectValidation(t *testing.T) {
	e := loggedIn(t)

	r := e.run("projects", "add", "--name", "Harbor bridge", "--description", "too short",
		"--start-date", "2026-03-01", "--end-date", "2026-02-01")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "description: Description must be at least 10 characters.")
	assert.Contains(t, r.stderr, "end_date: End date must not be before start date.")

	r = e.run("projects", "list", "--status", "paused")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, `unknown status "paused"`)
}

func TestUnknownCommand(t *testing.T) {
	e := newTestEnv(t)
	r := e.run("frobnicate")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "unknown command")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", types.ErrNotFound, exitUserError},
		{"unauthorized", &types.RemoteError{StatusCode: http.StatusUnauthorized, Err: types.ErrUnauthorized}, exitUserError},
		{"conflict", &types.RemoteError{StatusCode: http.StatusConflict}, exitUserError},
		{"server", &types.RemoteError{StatusCode: http.StatusInternalServerError}, exitSysError},
		{"transport", &types.RemoteError{Message: "connection refused"}, exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
