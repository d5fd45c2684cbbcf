package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"app"`

	Server struct {
		Port            string
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		AllowedOrigins  []string      `mapstructure:"allowed_origins"`
		RatePerSecond   float64       `mapstructure:"rate_per_second"`
		RateBurst       int           `mapstructure:"rate_burst"`
	} `mapstructure:"server"`

	Store struct {
		// Driver is "firestore" or "memory".
		Driver string
		// BootstrapAdmin is seeded as an active super-admin by the memory driver.
		BootstrapAdmin string `mapstructure:"bootstrap_admin"`
	} `mapstructure:"store"`

	Firebase struct {
		ProjectID       string `mapstructure:"project_id"`
		CredentialsFile string `mapstructure:"credentials_file"`
		CredentialsJSON string `mapstructure:"credentials_json"`
	} `mapstructure:"firebase"`

	Gateway struct {
		BaseURL       string `mapstructure:"base_url"`
		Timeout       time.Duration
		RatePerSecond float64 `mapstructure:"rate_per_second"`
		Burst         int
		ServiceToken  string `mapstructure:"service_token"`
	} `mapstructure:"gateway"`

	Auth struct {
		// Provider is "firebase" or "clerk".
		Provider    string
		ClerkSecret string `mapstructure:"clerk_secret"`
	} `mapstructure:"auth"`

	Broadcast struct {
		// Mode is "function" (remote broadcastAnnouncement) or "direct".
		Mode string
		Push bool
	} `mapstructure:"broadcast"`

	Units struct {
		// Mutator is "direct" (unit writes from this service) or "function"
		// (applyUnitCreation / applyUnitDeletion / applyUnitEdit, which only
		// change units and leave the request status to this service).
		Mutator string
	} `mapstructure:"units"`

	Scheduler struct {
		Enabled  bool
		Interval time.Duration
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"scheduler"`

	Redis struct {
		Addr     string
		Password string
		DB       int
	} `mapstructure:"redis"`

	Audit struct {
		DatabaseURL string `mapstructure:"database_url"`
	} `mapstructure:"audit"`

	Metrics struct {
		User string
		Pass string
	} `mapstructure:"metrics"`

	Visitor struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"visitor"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "")

	v.SetDefault("server.port", "3333")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.request_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_per_second", 10.0)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("store.driver", "firestore")
	v.SetDefault("store.bootstrap_admin", "")

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_file", "")
	v.SetDefault("firebase.credentials_json", "")

	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.timeout", 15*time.Second)
	v.SetDefault("gateway.rate_per_second", 5.0)
	v.SetDefault("gateway.burst", 5)
	v.SetDefault("gateway.service_token", "")

	v.SetDefault("auth.provider", "firebase")
	v.SetDefault("auth.clerk_secret", "")

	v.SetDefault("broadcast.mode", "function")
	v.SetDefault("broadcast.push", true)

	v.SetDefault("units.mutator", "direct")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.lock_ttl", 50*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("audit.database_url", "")

	v.SetDefault("metrics.user", "")
	v.SetDefault("metrics.pass", "")

	v.SetDefault("visitor.base_url", "")
}

// Load reads .env (if present), then the optional YAML file named by path,
// then environment variables. SERVER_PORT overrides server.port and so on.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
		if c.Dev() {
			c.App.LogLevel = "debug"
		}
	}
	return c, c.validate()
}

// Dev reports whether APP_ENV selects the development setup: console logs
// at debug level unless app.log_level says otherwise.
func (c Config) Dev() bool {
	return c.App.Env == "dev"
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "firestore", "memory":
	default:
		return fmt.Errorf("store.driver must be firestore or memory, got %q", c.Store.Driver)
	}
	switch c.Auth.Provider {
	case "firebase":
	case "clerk":
		if c.Auth.ClerkSecret == "" {
			return fmt.Errorf("auth.clerk_secret is required for the clerk provider")
		}
	default:
		return fmt.Errorf("auth.provider must be firebase or clerk, got %q", c.Auth.Provider)
	}
	switch c.Broadcast.Mode {
	case "function", "direct":
	default:
		return fmt.Errorf("broadcast.mode must be function or direct, got %q", c.Broadcast.Mode)
	}
	switch c.Units.Mutator {
	case "function", "direct":
	default:
		return fmt.Errorf("units.mutator must be function or direct, got %q", c.Units.Mutator)
	}
	if c.Gateway.BaseURL == "" && (c.Broadcast.Mode == "function" || c.Units.Mutator == "function") {
		return fmt.Errorf("gateway.base_url is required when any component runs in function mode")
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	return nil
}
