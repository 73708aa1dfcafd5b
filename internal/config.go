package internal

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/kataclub/kataclub_server/internal/maintenance"
	"github.com/kataclub/kataclub_server/internal/storage"
	"github.com/kataclub/kataclub_server/internal/user"
)

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type Config struct {
	Server      ServerConfig       `mapstructure:"server"`
	Database    DatabaseConfig     `mapstructure:"database"`
	Users       user.Config        `mapstructure:"users"`
	Storage     storage.Config     `mapstructure:"storage"`
	Maintenance maintenance.Config `mapstructure:"maintenance"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile("files/config.yaml")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("database.driver", "sqlite3")
	viper.SetDefault("database.dsn", "files/kataclub.db")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
