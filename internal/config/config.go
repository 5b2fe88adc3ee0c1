// Package config loads connection settings from flags, FLUENTDB_*
// environment variables and a TOML file, in that priority order.
package config

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Bind.
const EnvPrefix = "FLUENTDB"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheBolt   = "bolt"
)

// Config holds everything needed to open a handle.
type Config struct {
	Driver    string
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	Charset   string
	Collation string
	SSLMode   string
	Prefix    string
	Debug     bool

	Cache CacheConfig

	MaxOpenConns int
	MaxIdleConns int
	HealthCheck  time.Duration

	// AuditLevel is none, writes, reads or all.
	AuditLevel string
	// ValidateStatements rejects raw statements matching injection patterns.
	ValidateStatements bool
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend  string
	Dir      string
	Capacity int
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Driver:     "mysql",
		Host:       "localhost",
		Charset:    "utf8mb4",
		Collation:  "utf8mb4_general_ci",
		SSLMode:    "disable",
		Debug:      true,
		AuditLevel: "none",
		Cache: CacheConfig{
			Backend:  CacheMemory,
			Dir:      "cache",
			Capacity: 1024,
		},
	}
}

// RegisterFlags defines one flag per setting on fs, defaulting to the
// current values of c and writing back into c when parsed.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Driver, "driver", c.Driver, "Database driver: mysql, postgres, sqlite or sqlite3.")
	fs.StringVar(&c.Host, "host", c.Host, "Database host, optionally host:port.")
	fs.IntVar(&c.Port, "port", c.Port, "Database port. Zero uses the driver default.")
	fs.StringVar(&c.Database, "database", c.Database, "Database name, or file path for SQLite.")
	fs.StringVar(&c.Username, "username", c.Username, "Database user.")
	fs.StringVar(&c.Password, "password", c.Password, "Database password.")
	fs.StringVar(&c.Charset, "charset", c.Charset, "MySQL connection character set.")
	fs.StringVar(&c.Collation, "collation", c.Collation, "MySQL connection collation.")
	fs.StringVar(&c.SSLMode, "sslmode", c.SSLMode, "PostgreSQL sslmode.")
	fs.StringVar(&c.Prefix, "prefix", c.Prefix, "Prefix added to every table name.")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Print failing statements and exit instead of returning errors.")
	fs.StringVar(&c.Cache.Backend, "cache.backend", c.Cache.Backend, "Result cache backend: memory, file or bolt.")
	fs.StringVar(&c.Cache.Dir, "cache.dir", c.Cache.Dir, "Directory for the file and bolt cache backends.")
	fs.IntVar(&c.Cache.Capacity, "cache.capacity", c.Cache.Capacity, "Entries kept by the memory cache backend.")
	fs.IntVar(&c.MaxOpenConns, "max-open-conns", c.MaxOpenConns, "Maximum open connections. Zero means unlimited.")
	fs.IntVar(&c.MaxIdleConns, "max-idle-conns", c.MaxIdleConns, "Maximum idle connections.")
	fs.DurationVar(&c.HealthCheck, "health-check", c.HealthCheck, "Interval between background pings. Zero disables them.")
	fs.StringVar(&c.AuditLevel, "audit", c.AuditLevel, "Audit log level: none, writes, reads or all.")
	fs.BoolVar(&c.ValidateStatements, "validate", c.ValidateStatements, "Reject raw statements that match injection patterns.")
}

// Bind resolves every flag in fs from the command line, the environment
// and the TOML file at path, in that order. Flags set on the command line,
// and flags nothing else names, are left alone. Keys in the file that
// name no flag are an error.
func Bind(v *viper.Viper, fs *pflag.FlagSet, path string) error {
	if err := v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "binding flags")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", path)
		}

		valid := make(map[string]bool)
		fs.VisitAll(func(f *pflag.Flag) { valid[f.Name] = true })
		for _, key := range v.AllKeys() {
			if !valid[key] {
				return errors.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = errors.Wrapf(err, "setting %s", f.Name)
		}
	})
	return flagErr
}

// Load reads the TOML file at path (optional) and the environment over
// the defaults, then normalizes and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	fs := pflag.NewFlagSet("fluentdb", pflag.ContinueOnError)
	c.RegisterFlags(fs)
	if err := Bind(viper.New(), fs, path); err != nil {
		return nil, err
	}
	if err := c.Normalize(); err != nil {
		return nil, err
	}
	return c, nil
}

// Normalize splits a host:port Host when Port is unset, canonicalizes the
// driver and cache backend names, and validates the result.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = "mysql"
	}
	if c.Port == 0 {
		if host, port, err := net.SplitHostPort(c.Host); err == nil {
			p, err := strconv.Atoi(port)
			if err != nil {
				return errors.Wrapf(err, "parsing port in host %q", c.Host)
			}
			c.Host, c.Port = host, p
		}
	}
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	return c.Validate()
}

// Validate reports settings that cannot produce a working handle.
func (c *Config) Validate() error {
	if c.DriverName() == "" {
		return errors.Errorf("unsupported driver %q", c.Driver)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheFile, CacheBolt:
	default:
		return errors.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	if (c.Cache.Backend == CacheFile || c.Cache.Backend == CacheBolt) && c.Cache.Dir == "" {
		return errors.New("cache.dir is required for the file and bolt backends")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("port %d out of range", c.Port)
	}
	return nil
}

// DriverName maps the configured driver to a registered database/sql
// driver: mysql, postgres, sqlite (modernc) or sqlite3 (cgo).
func (c *Config) DriverName() string {
	switch c.Driver {
	case "mysql", "":
		return "mysql"
	case "postgres", "postgresql", "pgsql":
		return "postgres"
	case "sqlite":
		return "sqlite"
	case "sqlite3":
		return "sqlite3"
	}
	return ""
}

// DSN renders the data source name for DriverName.
func (c *Config) DSN() (string, error) {
	switch c.DriverName() {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = c.addr(3306)
		mc.DBName = c.Database
		mc.Collation = c.Collation
		if c.Charset != "" {
			mc.Params = map[string]string{"charset": c.Charset}
		}
		return mc.FormatDSN(), nil

	case "postgres":
		u := url.URL{
			Scheme: "postgres",
			Host:   c.addr(5432),
			Path:   "/" + c.Database,
		}
		if c.Username != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		}
		if c.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
		}
		return u.String(), nil

	case "sqlite", "sqlite3":
		if c.Database == "" {
			return ":memory:", nil
		}
		return c.Database, nil
	}
	return "", fmt.Errorf("unsupported driver %q", c.Driver)
}

func (c *Config) addr(defaultPort int) string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// BoltPath is the database file used by the bolt cache backend.
func (c *Config) BoltPath() string {
	return filepath.Join(c.Cache.Dir, "results.db")
}
