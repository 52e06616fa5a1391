// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	appconfig "github.com/JakeFAU/boe-sumario-crawler/internal/config"
	"github.com/JakeFAU/boe-sumario-crawler/internal/logging"
)

// EnvPrefix scopes environment overrides, e.g. BOE_CATALOG_YEAR=2024.
const EnvPrefix = "BOE"

// ConfigFile, when set before InitConfig runs, names an explicit config file
// and disables the search paths.
var ConfigFile string

// InitConfig initializes the process-wide Viper instance. It is registered
// with cobra.OnInitialize so flags are parsed before it runs.
func InitConfig() {
	Init(viper.GetViper(), ConfigFile)
}

// Init sets defaults, search paths, and environment binding on v, then reads
// the config file if one is found. A missing file is not an error.
func Init(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/boe-sumario/")
		v.AddConfigPath("$HOME/.boe-sumario")
	}

	appconfig.SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logging.L.Debug("Config file not found; using defaults, flags and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
		return
	}
	logging.L.Info("Using config file", zap.String("path", v.ConfigFileUsed()))
}
