package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix  = "BOOKSTORE"
	envConfig  = "BOOKSTORE_CONFIG"
	configName = "bookstore"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Workload  WorkloadConfig  `mapstructure:"workload"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

type RateLimitConfig struct {
	StockPerMin int `mapstructure:"stock_per_min"`
}

type SeedConfig struct {
	DatabaseURL string        `mapstructure:"database_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// WorkloadConfig drives cmd/workload. Percentages are out of 100.
type WorkloadConfig struct {
	Server       string `mapstructure:"server"`
	Workers      int    `mapstructure:"workers"`
	WarmupRuns   int    `mapstructure:"warmup_runs"`
	ActualRuns   int    `mapstructure:"actual_runs"`
	InitialBooks int    `mapstructure:"initial_books"`

	RarePercent     int `mapstructure:"rare_percent"`
	FrequentPercent int `mapstructure:"frequent_percent"`

	NumBooksToAdd           int `mapstructure:"num_books_to_add"`
	NumBooksWithLeastCopies int `mapstructure:"num_books_with_least_copies"`
	NumAddCopies            int `mapstructure:"num_add_copies"`
	NumEditorPicksToGet     int `mapstructure:"num_editor_picks_to_get"`
	NumBooksToBuy           int `mapstructure:"num_books_to_buy"`
	NumBookCopiesToBuy      int `mapstructure:"num_book_copies_to_buy"`

	EditorPickPercent int `mapstructure:"editor_pick_percent"`
}

func (c *HTTPConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// New returns a viper instance with defaults, BOOKSTORE_* env overrides and
// the config file search path set. Callers may bind flags before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(envConfig); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bookstore")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.token", "")
	v.SetDefault("ratelimit.stock_per_min", 0)
	v.SetDefault("seed.database_url", "")
	v.SetDefault("seed.timeout", 5*time.Second)

	v.SetDefault("workload.server", "")
	v.SetDefault("workload.workers", 10)
	v.SetDefault("workload.warmup_runs", 100)
	v.SetDefault("workload.actual_runs", 500)
	v.SetDefault("workload.initial_books", 1000)
	v.SetDefault("workload.rare_percent", 2)
	v.SetDefault("workload.frequent_percent", 8)
	v.SetDefault("workload.num_books_to_add", 10)
	v.SetDefault("workload.num_books_with_least_copies", 5)
	v.SetDefault("workload.num_add_copies", 10)
	v.SetDefault("workload.num_editor_picks_to_get", 10)
	v.SetDefault("workload.num_books_to_buy", 5)
	v.SetDefault("workload.num_book_copies_to_buy", 1)
	v.SetDefault("workload.editor_pick_percent", 10)
}

// Load reads the config file if there is one and decodes everything into a
// validated Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http.port %d", c.HTTP.Port)
	}
	if c.Metrics.Enabled && c.Metrics.Token == "" {
		return errors.New("metrics.token is required when metrics.enabled is set")
	}
	if c.RateLimit.StockPerMin < 0 {
		return fmt.Errorf("invalid ratelimit.stock_per_min %d", c.RateLimit.StockPerMin)
	}
	if c.Seed.Timeout < 0 {
		return fmt.Errorf("invalid seed.timeout %s", c.Seed.Timeout)
	}
	return c.Workload.Validate()
}

func (w *WorkloadConfig) Validate() error {
	if w.Workers <= 0 {
		return fmt.Errorf("invalid workload.workers %d", w.Workers)
	}
	if w.WarmupRuns < 0 || w.ActualRuns <= 0 {
		return fmt.Errorf("invalid workload runs: warmup=%d actual=%d", w.WarmupRuns, w.ActualRuns)
	}
	if w.InitialBooks < 0 {
		return fmt.Errorf("invalid workload.initial_books %d", w.InitialBooks)
	}
	if w.RarePercent < 0 || w.FrequentPercent < 0 || w.RarePercent+w.FrequentPercent > 100 {
		return fmt.Errorf("invalid interaction mix: rare=%d frequent=%d", w.RarePercent, w.FrequentPercent)
	}
	if w.EditorPickPercent < 0 || w.EditorPickPercent > 100 {
		return fmt.Errorf("invalid workload.editor_pick_percent %d", w.EditorPickPercent)
	}
	for name, n := range map[string]int{
		"num_books_to_add":            w.NumBooksToAdd,
		"num_books_with_least_copies": w.NumBooksWithLeastCopies,
		"num_add_copies":              w.NumAddCopies,
		"num_editor_picks_to_get":     w.NumEditorPicksToGet,
		"num_books_to_buy":            w.NumBooksToBuy,
		"num_book_copies_to_buy":      w.NumBookCopiesToBuy,
	} {
		if n <= 0 {
			return fmt.Errorf("invalid workload.%s %d", name, n)
		}
	}
	return nil
}
