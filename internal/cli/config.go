package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/worksite/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "WORKSITE"

	cfgKeyServer   = "server"
	cfgKeyTimeout  = "timeout"
	cfgKeyPageSize = "page_size"
	cfgKeyLogLevel = "log_level"
	cfgKeyDataDir  = "data_dir"
)

// envKeys are the settings that WORKSITE_<KEY> environment variables
// override. data_dir is resolved separately because its environment
// variable ranks below the config file.
var envKeys = []string{cfgKeyServer, cfgKeyTimeout, cfgKeyPageSize, cfgKeyLogLevel}

// loadConfig reads config.yaml from configDir using Viper, layered over
// defaults and under environment overrides and the --server flag.
// A missing config.yaml is not an error.
func loadConfig(configDir string, serverFlag *pflag.Flag) (*viper.Viper, error) {
	def := types.DefaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyServer, def.Server)
	v.SetDefault(cfgKeyTimeout, def.Timeout)
	v.SetDefault(cfgKeyPageSize, def.PageSize)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if serverFlag != nil {
		if err := v.BindPFlag(cfgKeyServer, serverFlag); err != nil {
			return nil, fmt.Errorf("bind flag server: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// configFromViper extracts the client settings.
func configFromViper(v *viper.Viper) types.Config {
	return types.Config{
		Server:   v.GetString(cfgKeyServer),
		Timeout:  v.GetDuration(cfgKeyTimeout),
		PageSize: v.GetInt(cfgKeyPageSize),
		LogLevel: v.GetString(cfgKeyLogLevel),
		DataDir:  v.GetString(cfgKeyDataDir),
	}
}
