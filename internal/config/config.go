package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the server and the command-line tools.
type Config struct {
	Addr        string  `yaml:"addr"`
	Dataset     string  `yaml:"dataset"`
	FrontendDir string  `yaml:"frontend_dir"`
	Workers     int     `yaml:"workers"`
	BlendFactor float64 `yaml:"blend_factor"`
	MaxJobs     int     `yaml:"max_jobs"`
	Log         Log     `yaml:"log"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Addr:        ":8080",
		Dataset:     "pv_potential_3d.npz",
		FrontendDir: "frontend/build",
		Workers:     runtime.NumCPU(),
		BlendFactor: 0.9,
		MaxJobs:     100,
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// BindFlags registers flags that override cfg's fields. Call before
// fs.Parse; values not given on the command line keep cfg's values.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.Dataset, "dataset", c.Dataset, "specific-energy grid (.npz or .json)")
	fs.StringVar(&c.FrontendDir, "frontend-dir", c.FrontendDir, "directory containing frontend build")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "parallel batch workers")
	fs.Float64Var(&c.BlendFactor, "blend-factor", c.BlendFactor, "derating applied to the mean of both models")
	fs.IntVar(&c.MaxJobs, "max-jobs", c.MaxJobs, "finished batch jobs kept in memory")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "log format (console, json)")
}

func (c Config) Validate() error {
	var errs []error
	if c.Dataset == "" {
		errs = append(errs, errors.New("dataset path is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.BlendFactor <= 0 || c.BlendFactor > 1 {
		errs = append(errs, fmt.Errorf("blend_factor must be in (0, 1], got %v", c.BlendFactor))
	}
	if c.MaxJobs < 1 {
		errs = append(errs, fmt.Errorf("max_jobs must be at least 1, got %d", c.MaxJobs))
	}
	return errors.Join(errs...)
}

// Parse loads the file named by --config (if any), applies command-line
// overrides and validates the result.
func Parse(name string, args []string) (Config, error) {
	return ParseWith(name, args, nil)
}

// ParseWith is Parse for commands with flags of their own. extra registers
// them on the flag set and is called once per pass, so it must only bind
// variables.
func ParseWith(name string, args []string, extra func(fs *pflag.FlagSet)) (Config, error) {
	// First pass only locates --config.
	scratch := Default()
	fs := newFlagSet(name, "", &scratch, extra)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	path, _ := fs.GetString("config")

	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}

	fs = newFlagSet(name, path, &cfg, extra)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func newFlagSet(name, path string, cfg *Config, extra func(fs *pflag.FlagSet)) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", path, "YAML config file")
	cfg.BindFlags(fs)
	if extra != nil {
		extra(fs)
	}
	return fs
}
