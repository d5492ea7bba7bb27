package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration of the converter.
// The values are read by viper from a config file or environment variables.
type Config struct {
	OutputDriver    string `mapstructure:"OUTPUT_DRIVER"`
	OutputPath      string `mapstructure:"OUTPUT_PATH"`
	DBSource        string `mapstructure:"DB_SOURCE"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	GroupDateLayout string `mapstructure:"GROUP_DATE_LAYOUT"`
	Timezone        string `mapstructure:"TIMEZONE"`
}

// LoadConfig reads app.env from path, then lets environment variables override it.
// A .env file in the working directory is loaded into the environment first.
// Missing files are not an error.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("OUTPUT_DRIVER", "shapefile")
	v.SetDefault("OUTPUT_PATH", "flickr")
	v.SetDefault("DB_SOURCE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GROUP_DATE_LAYOUT", "2006-01-02")
	v.SetDefault("TIMEZONE", "Local")

	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("config: failed to read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("config: failed to decode config: %w", err)
	}
	return config, nil
}

// Location returns the time zone named by Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
