package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Variables VariablesConfig `yaml:"variables" mapstructure:"variables"`
}

// ServerConfig local API server configuration
type ServerConfig struct {
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	APIPath   string `yaml:"api_path" mapstructure:"api_path"`
	CORS      bool   `yaml:"cors" mapstructure:"cors"`
	MaxUpload int64  `yaml:"max_upload" mapstructure:"max_upload"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level" mapstructure:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable" mapstructure:"enable"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// TransportConfig outgoing HTTP client configuration. Timeouts without a
// unit suffix in their name are milliseconds for Timeout and RetryBackoff
// and seconds for connection-level settings.
type TransportConfig struct {
	Timeout               int     `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries            int     `yaml:"max_retries" mapstructure:"max_retries"`
	RetryBackoff          int     `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	MaxConcurrent         int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RateLimit             float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxResponseBytes      int64   `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
	MaxIdleConns          int     `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost   int     `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout       int     `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout"`
	ResponseHeaderTimeout int     `yaml:"response_header_timeout" mapstructure:"response_header_timeout"`
	TLSHandshakeTimeout   int     `yaml:"tls_handshake_timeout" mapstructure:"tls_handshake_timeout"`
	TLSInsecureSkipVerify bool    `yaml:"tls_insecure_skip_verify" mapstructure:"tls_insecure_skip_verify"`
	FollowRedirects       bool    `yaml:"follow_redirects" mapstructure:"follow_redirects"`
	Cookies               bool    `yaml:"cookies" mapstructure:"cookies"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	Mode         string `yaml:"mode" mapstructure:"mode"`
	Locale       string `yaml:"locale" mapstructure:"locale"`
	Color        bool   `yaml:"color" mapstructure:"color"`
	Pretty       bool   `yaml:"pretty" mapstructure:"pretty"`
	MaxBodyBytes int    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// StorageConfig persistence parameters
type StorageConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxHistory int    `yaml:"max_history" mapstructure:"max_history"`
}

// VariablesConfig variable resolution options
type VariablesConfig struct {
	Dynamic bool `yaml:"dynamic" mapstructure:"dynamic"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("REQKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reqkit")
		v.AddConfigPath("/etc/reqkit")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Printf("Config file loaded: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyDefaults(&config, v)

	return &config, nil
}

// applyDefaults fills zero-value fields Unmarshal left empty and normalizes
// enumerations.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = v.GetString("server.host")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if cfg.Server.APIPath == "" {
		cfg.Server.APIPath = v.GetString("server.api_path")
	}
	cfg.Server.APIPath = "/" + strings.Trim(cfg.Server.APIPath, "/")

	if cfg.Log.Level == "" {
		cfg.Log.Level = v.GetString("log.level")
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = v.GetInt("transport.timeout")
	}
	if cfg.Transport.MaxConcurrent == 0 {
		cfg.Transport.MaxConcurrent = v.GetInt("transport.max_concurrent")
	}

	cfg.Output.Mode = strings.ToLower(strings.TrimSpace(cfg.Output.Mode))
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if strings.HasPrefix(cfg.Storage.Path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.Path = filepath.Join(home, cfg.Storage.Path[2:])
		}
	}
}

// setDefaults set default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 38899)
	v.SetDefault("server.api_path", "/api")
	v.SetDefault("server.cors", false)
	v.SetDefault("server.max_upload", int64(20*1024*1024))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "./reqkit.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 5)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)

	v.SetDefault("transport.timeout", 30000)
	v.SetDefault("transport.max_retries", 0)
	v.SetDefault("transport.retry_backoff", 1000)
	v.SetDefault("transport.max_concurrent", 10)
	v.SetDefault("transport.rate_limit", 0)
	v.SetDefault("transport.max_response_bytes", int64(50*1024*1024))
	v.SetDefault("transport.max_idle_conns", 100)
	v.SetDefault("transport.max_idle_conns_per_host", 10)
	v.SetDefault("transport.idle_conn_timeout", 90)
	v.SetDefault("transport.response_header_timeout", 0)
	v.SetDefault("transport.tls_handshake_timeout", 10)
	v.SetDefault("transport.tls_insecure_skip_verify", false)
	v.SetDefault("transport.follow_redirects", true)
	v.SetDefault("transport.cookies", true)

	v.SetDefault("output.mode", "console")
	v.SetDefault("output.locale", "en")
	v.SetDefault("output.color", true)
	v.SetDefault("output.pretty", true)
	v.SetDefault("output.max_body_bytes", 64*1024)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "~/.reqkit/reqkit.db")
	v.SetDefault("storage.max_history", 0)

	v.SetDefault("variables.dynamic", true)
}

// Validate configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.MaxUpload < 0 {
		return fmt.Errorf("server max upload cannot be negative")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.FileLogging.Enable {
		if c.Log.FileLogging.Path == "" {
			return fmt.Errorf("log file path cannot be empty when file logging is enabled")
		}
		if c.Log.FileLogging.MaxSizeMB < 1 {
			return fmt.Errorf("log file max size must be at least 1MB")
		}
		if c.Log.FileLogging.MaxBackups < 0 {
			return fmt.Errorf("log file max backups cannot be negative")
		}
		if c.Log.FileLogging.MaxAgeDays < 0 {
			return fmt.Errorf("log file max age cannot be negative")
		}
	}

	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport timeout cannot be negative")
	}
	if c.Transport.MaxRetries < 0 {
		return fmt.Errorf("transport max retries cannot be negative")
	}
	if c.Transport.RetryBackoff < 0 {
		return fmt.Errorf("transport retry backoff cannot be negative")
	}
	if c.Transport.MaxConcurrent < 1 {
		return fmt.Errorf("transport max concurrent must be at least 1")
	}
	if c.Transport.RateLimit < 0 {
		return fmt.Errorf("transport rate limit cannot be negative")
	}
	if c.Transport.MaxResponseBytes < 0 {
		return fmt.Errorf("transport max response bytes cannot be negative")
	}

	switch c.Output.Mode {
	case "", "console", "json":
		if c.Output.Mode == "" {
			c.Output.Mode = "console"
		}
	default:
		return fmt.Errorf("output mode must be 'console' or 'json'")
	}
	if strings.TrimSpace(c.Output.Locale) == "" {
		c.Output.Locale = "en"
	}
	if c.Output.MaxBodyBytes < 0 {
		return fmt.Errorf("output max body bytes cannot be negative")
	}

	switch c.Storage.Driver {
	case "", "sqlite", "sqlite3", "json":
		if c.Storage.Driver == "" || c.Storage.Driver == "sqlite3" {
			c.Storage.Driver = "sqlite"
		}
	default:
		return fmt.Errorf("storage driver must be sqlite or json")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Storage.MaxHistory < 0 {
		return fmt.Errorf("storage max_history cannot be negative")
	}

	return nil
}

// TransportTimeout returns the default per-request timeout.
func (c *Config) TransportTimeout() time.Duration {
	return time.Duration(c.Transport.Timeout) * time.Millisecond
}
