package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SecretsConfig holds the Fernet key used for stored e-invoice passwords.
// secret_key is read from EINVOICE_SECRET_KEY.
type SecretsConfig struct {
	SecretKey   string        `mapstructure:"secret_key"`
	MaxTokenAge time.Duration `mapstructure:"max_token_age"` // 0 disables the age check
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	JWTExpiry  time.Duration `mapstructure:"jwt_expiry"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	LoginRate  float64       `mapstructure:"login_rate"` // requests per second per client
	LoginBurst int           `mapstructure:"login_burst"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("einvoice")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/einvoice")
	}

	v.SetEnvPrefix("EINVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// EINVOICE_SECRET_KEY is the historical name of the key variable; it does not
	// follow the section_key layout.
	if err := v.BindEnv("secrets.secret_key", "EINVOICE_SECRET_KEY", "EINVOICE_SECRETS_SECRET_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports settings required to serve requests.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Secrets.SecretKey) == "" {
		errs = append(errs, errors.New("secrets.secret_key is required (set EINVOICE_SECRET_KEY)"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (set EINVOICE_AUTH_JWT_SECRET)"))
	}
	if c.Auth.JWTExpiry <= 0 {
		errs = append(errs, errors.New("auth.jwt_expiry must be positive"))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.trust_proxy_headers", false)

	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.database", "einvoice")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.max_conns", 10)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.login_rate", 1.0)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("secrets.secret_key", "")
	v.SetDefault("secrets.max_token_age", time.Duration(0))

	v.SetDefault("logging.level", "info")
}
