package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Plugins   PluginsConfig   `mapstructure:"plugins"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Data      DataConfig      `mapstructure:"data"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

type ServerConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`
}

type PluginsConfig struct {
	Dir string `mapstructure:"dir"`
}

type ProvidersConfig struct {
	RegistryFile string `mapstructure:"registry_file"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type ChatConfig struct {
	DefaultTemperature float64       `mapstructure:"default_temperature"`
	DefaultMaxTokens   int           `mapstructure:"default_max_tokens"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	ProbeURL string        `mapstructure:"probe_url"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/yat")
	}

	setDefaults(v)

	v.SetEnvPrefix("YAT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults. The daemon binds to loopback only; the desktop
	// shell is the sole consumer.
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_shutdown", "10s")

	v.SetDefault("plugins.dir", "plugins")
	v.SetDefault("providers.registry_file", "providers.json")
	v.SetDefault("data.dir", "data")

	v.SetDefault("chat.default_temperature", 0.7)
	v.SetDefault("chat.default_max_tokens", 2000)
	v.SetDefault("chat.request_timeout", "300s")

	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.probe_url", "https://www.google.com")
	v.SetDefault("monitor.interval", "30s")
	v.SetDefault("monitor.timeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "stdout")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Content-Type", "Authorization"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)
}
