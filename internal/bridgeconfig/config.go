// Package bridgeconfig loads the worker's own process configuration: where
// it keeps state, which keystore to read, and how it exposes metrics. This
// is distinct from the bridge topology document (internal/topology), which
// is plain JSON per the wire contract operators hand-author.
//
// Version: v0.1.0
package bridgeconfig

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/synnergy-chain/bridgeworker/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified process configuration for a bridgeworker instance.
type Config struct {
	Worker struct {
		DataDir     string `mapstructure:"data_dir" json:"data_dir"`
		KeystoreDir string `mapstructure:"keystore_dir" json:"keystore_dir"`
		ConfigPath  string `mapstructure:"config_path" json:"config_path"`
		MetricsPort int    `mapstructure:"metrics_port" json:"metrics_port"`
	} `mapstructure:"worker" json:"worker"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// appConfigMu guards AppConfig against the concurrent rewrite a live
// config-file edit triggers via the watch registered in Load.
var appConfigMu sync.RWMutex

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// If env is empty, only the default configuration is loaded. A missing
// default file is not fatal: sane defaults (see setDefaults) keep the worker
// runnable from flags and environment variables alone. A named env overlay
// that cannot be found is an error.
func Load(env string) (*Config, error) {
	// Mirrors the teacher's own config loaders (cmd/explorer, walletserver/
	// config), which load a local .env before consulting the process
	// environment. A missing .env is not an error: it is optional.
	_ = godotenv.Load()

	setDefaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("BRIDGEWORKER")
	viper.AutomaticEnv()

	appConfigMu.Lock()
	err := viper.Unmarshal(&AppConfig)
	appConfigMu.Unlock()
	if err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		appConfigMu.Lock()
		defer appConfigMu.Unlock()
		if err := viper.Unmarshal(&AppConfig); err != nil {
			logrus.WithError(err).WithField("file", e.Name).Error("reload process config")
			return
		}
		logrus.WithField("file", e.Name).Info("process config reloaded")
	})
	viper.WatchConfig()

	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the BRIDGEWORKER_ENV environment
// variable to select an overlay.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("BRIDGEWORKER_ENV", ""))
}

func setDefaults() {
	viper.SetDefault("worker.data_dir", "./data")
	viper.SetDefault("worker.keystore_dir", "./keystore")
	viper.SetDefault("worker.metrics_port", 9600)
	viper.SetDefault("logging.level", "info")
}
