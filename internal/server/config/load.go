package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LookupEnvFunc источник переменных окружения (os.LookupEnv в проде)
type LookupEnvFunc func(key string) (string, bool)

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional YAML file, the environment and finally command-line flags.
// Результат проверяется через Validate.
func LoadConfig(args []string, lookupEnv LookupEnvFunc) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := configPath(args, lookupEnv)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseYAMLFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// configPath ищет путь к YAML файлу: флаг -config, затем GRADES_CONFIG
func configPath(args []string, lookupEnv LookupEnvFunc) (string, error) {
	var path string
	probe := &Config{}
	probe.LoadDefaults()

	if err := newFlagSet(probe, &path).Parse(args); err != nil {
		return "", fmt.Errorf("failed to parse flags: %w", err)
	}

	if path != "" {
		return path, nil
	}
	if v, ok := lookupEnv(EnvPrefix + "CONFIG"); ok {
		return v, nil
	}
	return "", nil
}

// parseYAMLFile накладывает значения из YAML файла.
// Отсутствующие в файле поля сохраняют текущие значения.
func parseYAMLFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return parseYAML(cfg, f)
}

func parseYAML(cfg *Config, r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// parseEnv накладывает переменные окружения GRADES_*
func parseEnv(cfg *Config, lookupEnv LookupEnvFunc) error {
	strs := map[string]*string{
		"ADDR":         &cfg.Addr,
		"DB_DRIVER":    &cfg.DBDriver,
		"DATABASE_DSN": &cfg.DatabaseDSN,
		"SECRET_KEY":   &cfg.SecretKey,
		"TOKEN_ISSUER": &cfg.TokenIssuer,
		"LOG_LEVEL":    &cfg.LogLevel,
		"LOG_FORMAT":   &cfg.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL":        &cfg.TokenTTL,
		"LOGIN_WINDOW":     &cfg.LoginWindow,
		"SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
	}
	for name, dst := range durations {
		v, ok := lookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"BCRYPT_COST": &cfg.BcryptCost,
		"LOGIN_RATE":  &cfg.LoginRate,
	}
	for name, dst := range ints {
		v, ok := lookupEnv(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := lookupEnv(EnvPrefix + "TRUST_PROXY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sTRUST_PROXY: %w", EnvPrefix, err)
		}
		cfg.TrustProxy = b
	}

	return nil
}

// parseFlags накладывает флаги командной строки
func parseFlags(cfg *Config, args []string) error {
	var path string
	if err := newFlagSet(cfg, &path).Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	return nil
}

// newFlagSet описывает флаги сервера поверх текущих значений cfg.
//
//	-config string       YAML config file
//	-a string            HTTP bind address (e.g., ":8080")
//	-driver string       database driver (sqlite|postgres)
//	-d string            database DSN
//	-s string            token signing key
//	-t duration          token TTL (e.g., "2h")
//	-log-level string    debug|info|warn|error
//	-log-format string   text|json
func newFlagSet(cfg *Config, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(configPath, "config", "", "path to YAML config file")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "database driver: sqlite or postgres")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "token signing key")
	fs.StringVar(&cfg.TokenIssuer, "issuer", cfg.TokenIssuer, "token issuer")
	fs.DurationVar(&cfg.TokenTTL, "t", cfg.TokenTTL, "token TTL")
	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt cost")
	fs.IntVar(&cfg.LoginRate, "login-rate", cfg.LoginRate, "login attempts per window and client IP")
	fs.DurationVar(&cfg.LoginWindow, "login-window", cfg.LoginWindow, "login rate limit window")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "take client IP from X-Forwarded-For")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")

	return fs
}
