// Package config loads the tinyapp settings from defaults, a JSON file,
// environment variables and command line flags, in increasing priority.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr                 string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	ShortURLBase            string        `env:"BASE_URL" json:"base_url" validate:"url"`
	LogLevel                string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName              string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN             string        `env:"DATABASE_DSN" json:"database_dsn"`
	DatabaseDriver          string        `env:"DATABASE_DRIVER" json:"database_driver" validate:"dbdriver"`
	DBConnectionTimeout     time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir           string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	SessionCookieName       string        `env:"SESSION_COOKIE_NAME" json:"session_cookie_name" validate:"required"`
	SessionSigningSecretKey string        `env:"SESSION_SIGNING_SECRET_KEY" json:"session_signing_secret_key" validate:"omitempty,base64url"`
	SessionMaxAge           time.Duration `env:"SESSION_MAX_AGE" json:"session_max_age" validate:"gt=0"`
	BcryptCost              int           `env:"BCRYPT_COST" json:"bcrypt_cost" validate:"min=4,max=31"`
	ShortCodeLength         int           `env:"SHORT_CODE_LENGTH" json:"short_code_length" validate:"min=4,max=32"`
	SeedDemoData            bool          `env:"SEED_DEMO_DATA" json:"seed_demo_data"`
	SnapshotSchedule        string        `env:"SNAPSHOT_SCHEDULE" json:"snapshot_schedule"`
	TrustedSubnet           string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	TrustProxyHeaders       bool          `env:"TRUST_PROXY_HEADERS" json:"trust_proxy_headers"`
	ConfigFile              string        `env:"CONFIG" json:"-"`
}

type jsonConfig Config

type jsonDurations struct {
	*jsonConfig
	DBConnectionTimeout string `json:"db_connection_timeout"`
	SessionMaxAge       string `json:"session_max_age"`
}

// UnmarshalJSON accepts durations written as strings like "10s" or "24h".
func (c *Config) UnmarshalJSON(data []byte) error {
	aux := jsonDurations{jsonConfig: (*jsonConfig)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.DBConnectionTimeout != "" {
		value, err := time.ParseDuration(aux.DBConnectionTimeout)
		if err != nil {
			return fmt.Errorf("db_connection_timeout: %w", err)
		}
		c.DBConnectionTimeout = value
	}

	if aux.SessionMaxAge != "" {
		value, err := time.ParseDuration(aux.SessionMaxAge)
		if err != nil {
			return fmt.Errorf("session_max_age: %w", err)
		}
		c.SessionMaxAge = value
	}

	return nil
}

var defaultConfig = Config{
	RunAddr:                 ":8080",
	ShortURLBase:            "http://localhost:8080",
	LogLevel:                "info",
	DBFileName:              "",
	DatabaseDSN:             "",
	DatabaseDriver:          "pgx",
	DBConnectionTimeout:     10 * time.Second,
	MigrationsDir:           "",
	SessionCookieName:       "session",
	SessionSigningSecretKey: "",
	SessionMaxAge:           24 * time.Hour,
	BcryptCost:              10,
	ShortCodeLength:         6,
	SeedDemoData:            false,
	SnapshotSchedule:        "@every 1m",
	TrustedSubnet:           "",
}

func applyDefaults(values *Config, defaults Config) {
	configFile := values.ConfigFile
	*values = defaults
	values.ConfigFile = configFile
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func validateDBDriver(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	return value == "pgx" || value == "postgres"
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("dbdriver", validateDBDriver)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command line layer.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the source of command line flags.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// configFileFromArgs finds the -c/-config value without parsing the other flags.
func configFileFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := strings.TrimLeft(args[i], "-")
		if !strings.HasPrefix(args[i], "-") {
			continue
		}
		if name, value, found := strings.Cut(arg, "="); found {
			if name == "c" || name == "config" {
				return value
			}
			continue
		}
		if (arg == "c" || arg == "config") && i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}

func (c *Config) loadJSON(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}

func (c *Config) parseFlags(args []string) error {
	flagSet := flag.NewFlagSet("tinyapp", flag.ContinueOnError)

	flagSet.StringVar(&c.ConfigFile, "c", c.ConfigFile, "path to a JSON config file")
	flagSet.StringVar(&c.ConfigFile, "config", c.ConfigFile, "path to a JSON config file")
	flagSet.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flagSet.StringVar(&c.ShortURLBase, "b", c.ShortURLBase, "base address of the resulting shortened URL")
	flagSet.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flagSet.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with database")
	flagSet.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "A string with the database connection details")
	flagSet.StringVar(&c.DatabaseDriver, "driver", c.DatabaseDriver, "database/sql driver: pgx or postgres")
	flagSet.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read internal stats")
	flagSet.BoolVar(&c.TrustProxyHeaders, "trust-proxy", c.TrustProxyHeaders, "take the client IP from X-Real-IP/X-Forwarded-For")
	flagSet.BoolVar(&c.SeedDemoData, "seed", c.SeedDemoData, "create the demo users and URLs on start")

	return flagSet.Parse(args)
}

// New builds the configuration. Priority: flags > environment > JSON file > defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                nil,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		if fromArgs := configFileFromArgs(options.args); fromArgs != "" {
			configFile = fromArgs
		}
	}
	if configFile != "" {
		if err := values.loadJSON(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := values.parseFlags(options.args); err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `values.parseFlags()` calling: %w", err)
		}
	}
	values.ConfigFile = configFile
	values.ShortURLBase = strings.TrimRight(values.ShortURLBase, "/")

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
