package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SettingsFile is the base name of the optional settings file (rover.yaml, rover.json, ...)
const SettingsFile = "rover"

// Settings holds the server configuration
type Settings struct {
	Server struct {
		Host string
		Port int
	}
	Grids struct {
		Dir     string
		Default string
	}
	Storage struct {
		Backend string // memory, file, sqlite or postgres
		Path    string
		DSN     string
	}
	Log struct {
		Level  string
		Format string
	}
	Graylog struct {
		Enabled bool
		Address string
	}
	Rovers struct {
		IdleTTL time.Duration
	}
	Ngrok struct {
		Enabled   bool
		AuthToken string
		Domain    string
	}
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}

// NewViper returns a viper instance with defaults and ROVER_ environment binding
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)

	v.SetDefault("grids.dir", "grids")
	v.SetDefault("grids.default", "")

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "rovers")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("graylog.enabled", false)
	v.SetDefault("graylog.address", "localhost:12201")

	v.SetDefault("rovers.idleTTL", time.Duration(0))

	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authToken", "")
	v.SetDefault("ngrok.domain", "")

	v.SetEnvPrefix("ROVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadSettings reads the optional settings file from configDir, then the
// environment, then defaults. A missing file is not an error.
func LoadSettings(configDir string) (*Settings, error) {
	v := NewViper()
	v.SetConfigName(SettingsFile)
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return SettingsFrom(v)
}

// SettingsFrom extracts Settings from a configured viper instance
func SettingsFrom(v *viper.Viper) (*Settings, error) {
	s := &Settings{}

	s.Server.Host = v.GetString("server.host")
	s.Server.Port = v.GetInt("server.port")
	s.Grids.Dir = v.GetString("grids.dir")
	s.Grids.Default = v.GetString("grids.default")
	s.Storage.Backend = strings.ToLower(v.GetString("storage.backend"))
	s.Storage.Path = v.GetString("storage.path")
	s.Storage.DSN = v.GetString("storage.dsn")
	s.Log.Level = v.GetString("log.level")
	s.Log.Format = v.GetString("log.format")
	s.Graylog.Enabled = v.GetBool("graylog.enabled")
	s.Graylog.Address = v.GetString("graylog.address")
	s.Rovers.IdleTTL = v.GetDuration("rovers.idleTTL")
	s.Ngrok.Enabled = v.GetBool("ngrok.enabled")
	s.Ngrok.AuthToken = v.GetString("ngrok.authToken")
	s.Ngrok.Domain = v.GetString("ngrok.domain")

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings the server cannot start with
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", s.Server.Port)
	}
	switch s.Storage.Backend {
	case "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage.backend %q", s.Storage.Backend)
	}
	if s.Storage.Backend == "postgres" && s.Storage.DSN == "" {
		return errors.New("storage.dsn is required for the postgres backend")
	}
	if s.Rovers.IdleTTL < 0 {
		return fmt.Errorf("rovers.idleTTL must not be negative, got %s", s.Rovers.IdleTTL)
	}
	return nil
}
