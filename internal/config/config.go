package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. COLLABGRAPH_ANALYSIS_DAMPING
const EnvPrefix = "COLLABGRAPH"

// Config holds all configuration settings
type Config struct {
	Input     InputConfig     `mapstructure:"input" yaml:"input"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Community CommunityConfig `mapstructure:"community" yaml:"community"`
	Dedup     DedupConfig     `mapstructure:"dedup" yaml:"dedup"`
	Temporal  TemporalConfig  `mapstructure:"temporal" yaml:"temporal"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type InputConfig struct {
	Developers     string `mapstructure:"developers" yaml:"developers"`
	Collaborations string `mapstructure:"collaborations" yaml:"collaborations"`
	Activity       string `mapstructure:"activity" yaml:"activity"` // optional year_month,developer_id table
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Format    string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=table json yaml csv"` // empty = table on a terminal, csv otherwise
}

type AnalysisConfig struct {
	Damping       float64 `mapstructure:"damping" yaml:"damping" validate:"gte=0,lte=1"`
	MaxIterations int     `mapstructure:"max_iterations" yaml:"max_iterations" validate:"gt=0"`
	Tolerance     float64 `mapstructure:"tolerance" yaml:"tolerance" validate:"gt=0"`
	CoreQuantile  float64 `mapstructure:"core_quantile" yaml:"core_quantile" validate:"gt=0,lte=1"`
}

type CommunityConfig struct {
	Strategy   string  `mapstructure:"strategy" yaml:"strategy" validate:"oneof=modularity components"`
	Seed       int64   `mapstructure:"seed" yaml:"seed"`
	Resolution float64 `mapstructure:"resolution" yaml:"resolution"`
	MaxPasses  int     `mapstructure:"max_passes" yaml:"max_passes"`
}

type DedupConfig struct {
	TopK     int     `mapstructure:"top_k" yaml:"top_k" validate:"gte=0"`
	ClampMax float64 `mapstructure:"clamp_max" yaml:"clamp_max" validate:"gte=0"` // 0 disables clamping
}

type TemporalConfig struct {
	FillGaps bool `mapstructure:"fill_gaps" yaml:"fill_gaps"`
	Workers  int  `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=64"`
}

type StorageConfig struct {
	Type        string `mapstructure:"type" yaml:"type" validate:"oneof=none sqlite postgres"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn" validate:"required_if=Type postgres"`
	LocalPath   string `mapstructure:"local_path" yaml:"local_path" validate:"required_if=Type sqlite"`
}

type CacheConfig struct {
	Type          string        `mapstructure:"type" yaml:"type" validate:"oneof=none bolt redis"`
	Path          string        `mapstructure:"path" yaml:"path" validate:"required_if=Type bolt"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr" validate:"required_if=Type redis"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db" validate:"gte=0"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
	MemoryEntries int           `mapstructure:"memory_entries" yaml:"memory_entries" validate:"gte=0"`
}

type TelemetryConfig struct {
	TraceExporter string `mapstructure:"trace_exporter" yaml:"trace_exporter" validate:"oneof=none stdout"`
	MetricsFile   string `mapstructure:"metrics_file" yaml:"metrics_file"` // Prometheus textfile, empty disables
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file" yaml:"file"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Input: InputConfig{
			Developers:     filepath.Join("data", "developers.csv"),
			Collaborations: filepath.Join("data", "collaborations_temporal.csv"),
		},
		Output: OutputConfig{
			Directory: "output",
		},
		Analysis: AnalysisConfig{
			Damping:       0.85,
			MaxIterations: 100,
			Tolerance:     1e-6,
			CoreQuantile:  0.8,
		},
		Community: CommunityConfig{
			Strategy:   "modularity",
			Seed:       42,
			Resolution: 1.0,
			MaxPasses:  10,
		},
		Dedup: DedupConfig{
			TopK: 20,
		},
		Temporal: TemporalConfig{
			Workers: 1,
		},
		Storage: StorageConfig{
			Type:      "none",
			LocalPath: filepath.Join(homeDir, ".collabgraph", "results.db"),
		},
		Cache: CacheConfig{
			Type:          "none",
			Path:          filepath.Join(homeDir, ".collabgraph", "cache.db"),
			RedisAddr:     "localhost:6379",
			TTL:           24 * time.Hour,
			MemoryEntries: 256,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file, .env files and the environment.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".collabgraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".collabgraph"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// setDefaults registers every leaf key so environment variables bind to it
func setDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]interface{}{
		"input.developers":         cfg.Input.Developers,
		"input.collaborations":     cfg.Input.Collaborations,
		"input.activity":           cfg.Input.Activity,
		"output.directory":         cfg.Output.Directory,
		"output.format":            cfg.Output.Format,
		"analysis.damping":         cfg.Analysis.Damping,
		"analysis.max_iterations":  cfg.Analysis.MaxIterations,
		"analysis.tolerance":       cfg.Analysis.Tolerance,
		"analysis.core_quantile":   cfg.Analysis.CoreQuantile,
		"community.strategy":       cfg.Community.Strategy,
		"community.seed":           cfg.Community.Seed,
		"community.resolution":     cfg.Community.Resolution,
		"community.max_passes":     cfg.Community.MaxPasses,
		"dedup.top_k":              cfg.Dedup.TopK,
		"dedup.clamp_max":          cfg.Dedup.ClampMax,
		"temporal.fill_gaps":       cfg.Temporal.FillGaps,
		"temporal.workers":         cfg.Temporal.Workers,
		"storage.type":             cfg.Storage.Type,
		"storage.postgres_dsn":     cfg.Storage.PostgresDSN,
		"storage.local_path":       cfg.Storage.LocalPath,
		"cache.type":               cfg.Cache.Type,
		"cache.path":               cfg.Cache.Path,
		"cache.redis_addr":         cfg.Cache.RedisAddr,
		"cache.redis_password":     cfg.Cache.RedisPassword,
		"cache.redis_db":           cfg.Cache.RedisDB,
		"cache.ttl":                cfg.Cache.TTL,
		"cache.memory_entries":     cfg.Cache.MemoryEntries,
		"telemetry.trace_exporter": cfg.Telemetry.TraceExporter,
		"telemetry.metrics_file":   cfg.Telemetry.MetricsFile,
		"log.level":                cfg.Log.Level,
		"log.file":                 cfg.Log.File,
		"log.json":                 cfg.Log.JSON,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".collabgraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the unprefixed variables shared with other tools
func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Cache.RedisDB = n
		}
	}

	cfg.Storage.LocalPath = expandPath(cfg.Storage.LocalPath)
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
