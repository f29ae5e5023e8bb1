package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "armorsheet.cfg.json"

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Environment
// variables prefixed with ARMORSHEET_ override both, e.g. ARMORSHEET_DB_PATH.
// A missing file is reported as an error wrapping viper.ConfigFileNotFoundError;
// the defaults are still in place.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logPretty", true)
	viper.SetDefault("listenAddr", ":8080")

	viper.SetDefault("db.path", "./armorsheet.db")
	viper.SetDefault("catalog.dir", "./data/armor")
	viper.SetDefault("feed.enabled", true)

	viper.SetEnvPrefix("ARMORSHEET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
