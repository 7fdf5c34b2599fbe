// CLI integration tests for worksite. Each test drives the built binary
// through a fake API the way a user would from a shell.
package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mesh-intelligence/worksite/internal/apitest"
	"github.com/mesh-intelligence/worksite/internal/session"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

// TestMain builds the worksite binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "worksite-test-*")
	if err != nil {
		SetBuildErr(err)
		os.Exit(1)
	}
	binPath := filepath.Join(tmpDir, "worksite")
	SetWorksiteBin(binPath)

	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/worksite")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		SetBuildErr(&BuildError{
			Err:    err,
			Output: string(output),
		})
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)

	os.Exit(code)
}

// Test1_InitAndLogin verifies init and a login with the password on stdin.
func Test1_InitAndLogin(t *testing.T) {
	env := NewTestEnv(t)
	env.Server.AddUser("alice", "secret1", types.RoleUser)

	result := env.MustRun("init")
	if !strings.Contains(result.Stdout, "Kept existing") {
		t.Errorf("init should keep the existing config, got %q", result.Stdout)
	}
	if _, err := os.Stat(filepath.Join(env.DataDir, session.DBFileName)); err != nil {
		t.Errorf("session database not created: %v", err)
	}

	result = env.Run("secret1\n", "login", "-u", "alice")
	if result.ExitCode != 0 {
		t.Fatalf("login failed: %s", result.Stderr)
	}
	if result.Stdout != "Logged in as alice\n" {
		t.Errorf("unexpected login output %q", result.Stdout)
	}

	result = env.MustRun("whoami")
	if !strings.Contains(result.Stdout, "alice") || !strings.Contains(result.Stdout, env.Server.URL) {
		t.Errorf("whoami output %q", result.Stdout)
	}
}

// Test2_WorkerRoundTrip adds, lists, and deletes a worker through JSON output.
func Test2_WorkerRoundTrip(t *testing.T) {
	env := NewTestEnv(t)
	env.Server.AddUser("alice", "secret1", types.RoleUser)
	env.MustRun("login", "-u", "alice", "-p", "secret1")

	created := ParseJSON[types.Worker](t, env.MustRun("--json", "workers", "add",
		"--name", "Ann Lee", "--age", "30", "--position", "Mason", "--salary", "40000").Stdout)
	if created.ID == 0 {
		t.Fatal("created worker has no ID")
	}

	page := ParseJSON[types.Page[types.Worker]](t, env.MustRun("--json", "workers", "list").Stdout)
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].Name != "Ann Lee" {
		t.Errorf("unexpected page %+v", page)
	}

	result := env.MustRun("workers", "delete", itoa(created.ID))
	if !strings.Contains(result.Stderr, "Worker deleted successfully") {
		t.Errorf("missing delete notification in %q", result.Stderr)
	}
	if _, ok := env.Server.Worker(created.ID); ok {
		t.Error("worker still stored after delete")
	}
}

// Test3_ServerPrecedence verifies flag > environment > config file for
// the server setting.
func Test3_ServerPrecedence(t *testing.T) {
	env := NewTestEnv(t)
	other := apitest.New(t)

	result := env.MustRun("health")
	if result.Stdout != env.Server.URL+" is healthy\n" {
		t.Errorf("config server not used: %q", result.Stdout)
	}

	env.Env = []string{"WORKSITE_SERVER=" + other.URL}
	result = env.MustRun("health")
	if result.Stdout != other.URL+" is healthy\n" {
		t.Errorf("environment server not used: %q", result.Stdout)
	}

	result = env.MustRun("--server", env.Server.URL, "health")
	if result.Stdout != env.Server.URL+" is healthy\n" {
		t.Errorf("flag server not used: %q", result.Stdout)
	}
}

// Test4_DataDirPrecedence verifies that --data-dir wins over the config
// file, which wins over WORKSITE_DATA_DIR.
func Test4_DataDirPrecedence(t *testing.T) {
	env := NewTestEnv(t)
	envDir := filepath.Join(t.TempDir(), "from-env")
	env.Env = []string{"WORKSITE_DATA_DIR=" + envDir}

	env.MustRun("init")
	if _, err := os.Stat(filepath.Join(env.DataDir, session.DBFileName)); err != nil {
		t.Errorf("config data_dir not used: %v", err)
	}
	if _, err := os.Stat(envDir); !os.IsNotExist(err) {
		t.Errorf("environment data dir should rank below the config file")
	}

	flagDir := filepath.Join(t.TempDir(), "from-flag")
	result := env.MustRun("--data-dir", flagDir, "init")
	if !strings.Contains(result.Stdout, flagDir) {
		t.Errorf("flag data dir not used: %q", result.Stdout)
	}
}

// Test5_ExitCodes verifies user errors exit 1 and system errors exit 2.
func Test5_ExitCodes(t *testing.T) {
	env := NewTestEnv(t)

	if got := env.Run("", "workers", "list").ExitCode; got != 1 {
		t.Errorf("listing without a session: exit %d, want 1", got)
	}
	if got := env.Run("", "workers", "get", "not-a-number").ExitCode; got != 1 {
		t.Errorf("bad ID: exit %d, want 1", got)
	}

	env.Server.Close()
	result := env.Run("", "health")
	if result.ExitCode != 2 {
		t.Errorf("unreachable server: exit %d, want 2", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "is unhealthy") {
		t.Errorf("unexpected stderr %q", result.Stderr)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
