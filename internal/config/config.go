package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// envPrefix is stripped from environment variables before mapping them onto
// the config tree, e.g. NUITAP_SERVER_PORT -> server.port.
const envPrefix = "NUITAP_"

type Config struct {
	Primary Primary      `koanf:"primary" validate:"required"`
	Server  ServerConfig `koanf:"server" validate:"required"`
	Log     LogConfig    `koanf:"log" validate:"required"`
	Auth    AuthConfig   `koanf:"auth" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

type LogConfig struct {
	// Dir is the root of the per-server/per-resource log tree.
	Dir string `koanf:"dir" validate:"required"`
}

type AuthConfig struct {
	// PIN is the single shared secret gating the viewer and admin
	// endpoints. It has no default.
	PIN            string `koanf:"pin" validate:"required"`
	CookieName     string `koanf:"cookie_name" validate:"required"`
	CookieTTLHours int    `koanf:"cookie_ttl_hours" validate:"required,gt=0"`
}

// Defaults returns the baseline configuration. Everything except the PIN
// has a usable default; environment variables override field by field.
func Defaults() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15,
			WriteTimeout: 15,
			IdleTimeout:  60,
		},
		Log: LogConfig{Dir: "./logs"},
		Auth: AuthConfig{
			CookieName:     "nuitap_auth",
			CookieTTLHours: 24,
		},
	}
}

// LoadConfig loads the configuration from environment variables using koanf,
// on top of Defaults, and validates the result. Configuration is fixed at
// process start; there is no runtime reconfiguration.
func LoadConfig() (mainConfig *Config, err error) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	k := koanf.New(".")
	err = k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// First underscore separates the section from the key, so
		// NUITAP_AUTH_COOKIE_NAME becomes auth.cookie_name.
		return strings.Replace(s, "_", ".", 1)
	}), nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not load initial env variables")
	}

	mainConfig = Defaults()
	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not unmarshal mainconfig")
	}

	validate := validator.New()
	err = validate.Struct(mainConfig)
	if err != nil {
		return nil, err
	}

	return mainConfig, nil
}
