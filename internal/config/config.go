package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	SourcesPath string         `yaml:"sources_path" mapstructure:"sources_path"`
	Output      string         `yaml:"output" mapstructure:"output"`
	Pipeline    PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Store       StoreConfig    `yaml:"store" mapstructure:"store"`
	Log         LogConfig      `yaml:"log" mapstructure:"log"`
}

// PipelineConfig tunes per-source processing.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures where output tables are written.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Schema holds the postgres output tables; empty resolves through search_path.
	Schema      string `yaml:"schema" mapstructure:"schema"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Store drivers.
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Validation modes.
const (
	ModeRun     = "run"
	ModeInspect = "inspect"
	ModeRuns    = "runs"
)

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLINGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sources_path", "./sources")
	v.SetDefault("output", "output.csv")
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("store.driver", DriverCSV)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.schema", "public")
	v.SetDefault("store.output_dir", ".")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on and reports every
// problem at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.SourcesPath == "" {
		problems = append(problems, "sources_path is required")
	}

	switch mode {
	case ModeInspect:
	case ModeRun:
		if c.Output == "" {
			problems = append(problems, "output is required")
		}
		if c.Pipeline.Concurrency < 1 {
			problems = append(problems, "pipeline.concurrency must be > 0")
		}
		problems = append(problems, c.validateStore()...)
	case ModeRuns:
		problems = append(problems, c.validateStore()...)
		if c.Store.Driver == DriverCSV {
			problems = append(problems, "store.driver csv keeps no run history")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var problems []string
	switch c.Store.Driver {
	case DriverCSV, DriverSQLite:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for postgres")
		}
	default:
		problems = append(problems, "store.driver must be one of csv, sqlite, postgres")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		problems = append(problems, "store.min_conns must not exceed store.max_conns")
	}
	return problems
}

func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
