package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Preview   PreviewConfig   `mapstructure:"preview"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	AppHost   string          `mapstructure:"host"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DBConfig struct {
	Source          string        `mapstructure:"source"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	UserInfoURL  string `mapstructure:"userinfo_url"`
}

type StorageConfig struct {
	Path           string  `mapstructure:"path"`
	MaxUploadMB    int64   `mapstructure:"max_upload_mb"`
	DefaultLimitMB float64 `mapstructure:"default_limit_mb"`
}

type PreviewConfig struct {
	MaxWidth   int                 `mapstructure:"max_width"`
	MaxHeight  int                 `mapstructure:"max_height"`
	Quality    int                 `mapstructure:"quality"`
	Workers    int                 `mapstructure:"workers"`
	IconsDir   string              `mapstructure:"icons_dir"`
	Extensions map[string][]string `mapstructure:"extensions"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type AdminConfig struct {
	Emails []string `mapstructure:"emails"`
}

type JobsConfig struct {
	ReconcileSchedule string `mapstructure:"reconcile_schedule"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("host", "http://localhost:8080")

	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("db.connect_timeout", 30*time.Second)

	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.refresh_ttl", 24*time.Hour)

	v.SetDefault("oauth.auth_url", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("oauth.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("oauth.userinfo_url", "https://openidconnect.googleapis.com/v1/userinfo")

	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.max_upload_mb", 1024)
	v.SetDefault("storage.default_limit_mb", 1024.0)

	v.SetDefault("preview.max_width", 200)
	v.SetDefault("preview.max_height", 200)
	v.SetDefault("preview.quality", 85)
	v.SetDefault("preview.workers", 0)

	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")

	v.SetDefault("rate_limit.requests_per_minute", 60)

	v.SetDefault("jobs.reconcile_schedule", "@every 1h")
}

// Load reads configs/settings.yml (or the file at path when set), then lets
// environment variables override any key, e.g. DB_SOURCE for db.source.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.SetConfigName("settings")
		v.SetConfigType("yml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("storage.max_upload_mb must be positive, got %d", c.Storage.MaxUploadMB)
	}
	if c.Preview.MaxWidth <= 0 || c.Preview.MaxHeight <= 0 {
		return fmt.Errorf("preview bounds must be positive, got %dx%d", c.Preview.MaxWidth, c.Preview.MaxHeight)
	}
	if c.Preview.Quality < 1 || c.Preview.Quality > 100 {
		return fmt.Errorf("preview.quality must be within 1..100, got %d", c.Preview.Quality)
	}
	return nil
}

func (c *Config) IsAdminEmail(email string) bool {
	return lo.ContainsBy(c.Admin.Emails, func(e string) bool { return strings.EqualFold(e, email) })
}
