package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/worksite/internal/paths"
	"github.com/mesh-intelligence/worksite/internal/session"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Server   string `yaml:"server"`
	Timeout  string `yaml:"timeout"`
	PageSize int    `yaml:"page_size"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir,omitempty"`
}

const configHeader = "# worksite CLI configuration\n" +
	"# Every key can be overridden by WORKSITE_<KEY>, e.g. WORKSITE_SERVER.\n"

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and session database",
		Long: "Init writes config.yaml with the current settings unless it already\n" +
			"exists, then creates the data directory and the session database.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	path := paths.ConfigFile(a.configDir)
	written, err := writeConfigIfMissing(path, configFile{
		Server:   a.cfg.Server,
		Timeout:  a.cfg.Timeout.String(),
		PageSize: a.cfg.PageSize,
		LogLevel: a.cfg.LogLevel,
		DataDir:  a.flags.dataDir,
	})
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	st, err := session.Open(a.dataDir)
	if err != nil {
		return sysError(fmt.Errorf("initialize session store: %w", err))
	}
	if err := st.Close(); err != nil {
		return sysError(fmt.Errorf("close session store: %w", err))
	}

	if written {
		fmt.Fprintf(a.out, "Wrote %s\n", path)
	} else {
		fmt.Fprintf(a.out, "Kept existing %s\n", path)
	}
	fmt.Fprintf(a.out, "Session database in %s\n", a.dataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. It reports whether it wrote the file.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
