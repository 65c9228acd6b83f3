package config

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	File     FileConfig     `json:"file" mapstructure:"file"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
}

// FileConfig holds file storage backend settings. An empty OutputDir means
// the game's script-output directory.
type FileConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// DatabaseConfig holds database storage backend settings. SqlitePath is the
// fallback database used when Postgres is unreachable.
type DatabaseConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"password" mapstructure:"password"`
	Database   string `json:"database" mapstructure:"database"`
	SqlitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// InfluxConfig holds stage metrics settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing the config file; a missing file is
// not an error, the defaults describe a working local setup.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./graphio_logs")

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.outputDir", "")
	viper.SetDefault("storage.file.compressOutput", false)

	viper.SetDefault("storage.database.host", "localhost")
	viper.SetDefault("storage.database.port", "5432")
	viper.SetDefault("storage.database.username", "postgres")
	viper.SetDefault("storage.database.password", "postgres")
	viper.SetDefault("storage.database.database", "graphio")
	viper.SetDefault("storage.database.sqlitePath", "graphio_extractor.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "graphio-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "localhost:4318")

	viper.SetConfigName("graphio_extractor.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "reading config file")
	}

	return nil
}

// Storage returns the configured storage settings.
func Storage() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		File: FileConfig{
			OutputDir:      viper.GetString("storage.file.outputDir"),
			CompressOutput: viper.GetBool("storage.file.compressOutput"),
		},
		Database: DatabaseConfig{
			Host:       viper.GetString("storage.database.host"),
			Port:       viper.GetString("storage.database.port"),
			Username:   viper.GetString("storage.database.username"),
			Password:   viper.GetString("storage.database.password"),
			Database:   viper.GetString("storage.database.database"),
			SqlitePath: viper.GetString("storage.database.sqlitePath"),
		},
	}
}

// Influx returns the configured stage metrics settings.
func Influx() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
