// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/snowflakedb/gosnowflake"
)

// Supported source drivers
const (
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
)

// SourceConfig selects and configures the relational source of user and order data
type SourceConfig struct {
	Driver    string          `koanf:"driver"`
	Postgres  PostgresConfig  `koanf:"postgres"`
	Snowflake SnowflakeConfig `koanf:"snowflake"`
}

// Validate checks the settings of the selected driver only
func (c *SourceConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		return c.Postgres.Validate()
	case DriverSnowflake:
		return c.Snowflake.Validate()
	default:
		return fmt.Errorf("unsupported source driver %q", c.Driver)
	}
}

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User          string `koanf:"user"`
	Password      string `koanf:"password"`
	Account       string `koanf:"account"`
	Warehouse     string `koanf:"warehouse"`
	Database      string `koanf:"database"`
	Schema        string `koanf:"schema"`
	Role          string `koanf:"role"`
	Authenticator string `koanf:"authenticator"`

	// Connection pool settings
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`

	// Query timeout
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// Validate ensures the required Snowflake settings are present
func (c *SnowflakeConfig) Validate() error {
	switch {
	case c.User == "":
		return errors.New("snowflake user is required")
	case c.Account == "":
		return errors.New("snowflake account is required")
	case c.Warehouse == "":
		return errors.New("snowflake warehouse is required")
	case c.Database == "":
		return errors.New("snowflake database is required")
	}
	if c.Password == "" && c.AuthType() == gosnowflake.AuthTypeSnowflake {
		return errors.New("snowflake password is required")
	}
	return nil
}

// AuthType converts the configured authenticator name to the driver's type
func (c *SnowflakeConfig) AuthType() gosnowflake.AuthType {
	switch strings.ToLower(c.Authenticator) {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "token":
		return gosnowflake.AuthTypeTokenAccessor
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// ConnectionString returns a formatted Snowflake DSN
func (c *SnowflakeConfig) ConnectionString() (string, error) {
	return gosnowflake.DSN(&gosnowflake.Config{
		Account:       c.Account,
		User:          c.User,
		Password:      c.Password,
		Database:      c.Database,
		Schema:        c.Schema,
		Warehouse:     c.Warehouse,
		Role:          c.Role,
		Authenticator: c.AuthType(),
	})
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	SSLMode  string `koanf:"sslmode"`
	Schema   string `koanf:"schema"`

	// Legacy credentials YAML (HOST, PORT, USER, PASSWORD, DATABASE keys).
	// Values found there override the fields above.
	CredentialsFile string `koanf:"credentials_file"`

	// Connection pool settings
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`

	// Statement timeout
	StatementTimeout time.Duration `koanf:"statement_timeout"`
}

// Validate ensures the required PostgreSQL settings are present
func (c *PostgresConfig) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("postgres host is required")
	case c.User == "":
		return errors.New("postgres user is required")
	case c.Database == "":
		return errors.New("postgres database is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("postgres port %d is out of range", c.Port)
	}
	return nil
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.StatementTimeout > 0 {
		q.Set("statement_timeout", fmt.Sprint(c.StatementTimeout.Milliseconds()))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ApplyCredentialsFile merges the legacy credentials YAML into c, if configured
func (c *PostgresConfig) ApplyCredentialsFile() error {
	if c.CredentialsFile == "" {
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(c.CredentialsFile), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to read credentials file %s: %w", c.CredentialsFile, err)
	}

	if v := k.String("HOST"); v != "" {
		c.Host = v
	}
	if v := k.Int("PORT"); v != 0 {
		c.Port = v
	}
	if v := k.String("USER"); v != "" {
		c.User = v
	}
	if v := k.String("PASSWORD"); v != "" {
		c.Password = v
	}
	if v := k.String("DATABASE"); v != "" {
		c.Database = v
	}
	return nil
}
