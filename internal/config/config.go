// Package config loads the runner's configuration from
// .taskrunner/config.yaml via spf13/viper, applying defaults the way
// the teacher's internal/config.Load/DefaultConfig/applyDefaults did.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full set of runtime knobs named in spec §6.
type Config struct {
	MaxRetries        int    `mapstructure:"max_retries"`
	Mode              string `mapstructure:"mode"` // lite | full | auto
	AgentsMode        string `mapstructure:"agents_mode"`
	Executor          string `mapstructure:"executor"`
	Model             string `mapstructure:"model"`
	ReasoningEffort   string `mapstructure:"reasoning_effort"`
	ExecIdleTimeoutMs int64  `mapstructure:"exec_idle_timeout_ms"`
	ExecHardTimeoutMs int64  `mapstructure:"exec_hard_timeout_ms"`
	TerminateOnResult bool   `mapstructure:"terminate_on_result"`
	FullAuto          bool   `mapstructure:"full_auto"`
	SkipGitRepoCheck  bool   `mapstructure:"skip_git_repo_check"`
	MaxTasks          int    `mapstructure:"max_tasks"`
	ContinueOnFailure bool   `mapstructure:"continue_on_failure"`
	Tag               string `mapstructure:"tag"`

	TaskStore TaskStoreConfig `mapstructure:"task_store"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// TaskStoreConfig selects and configures the taskstore.Store backend.
type TaskStoreConfig struct {
	Backend string `mapstructure:"backend"` // json | sqlite
	Path    string `mapstructure:"path"`
	// SeedFile is the tasks.json a freshly opened, empty sqlite backend
	// is auto-imported from; ignored by the json backend.
	SeedFile string `mapstructure:"seed_file"`
}

// AssetsConfig controls the Asset Initializer's remote template fetch.
type AssetsConfig struct {
	DisableRemote bool   `mapstructure:"disable_remote"`
	TemplateURL   string `mapstructure:"template_url"`
}

// MetricsConfig controls the optional /metrics HTTP endpoint.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"` // empty disables serving
}

const configRelPath = ".taskrunner/config.yaml"

// Load reads the config from workspaceDir, falling back to
// DefaultConfig() if the file is absent.
func Load(workspaceDir string) (*Config, error) {
	return LoadFile(filepath.Join(workspaceDir, configRelPath))
}

// LoadFile reads the config from an explicit path (the --config flag),
// falling back to DefaultConfig() if the file is absent.
func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(v, &cfg)
	return &cfg, nil
}

// Watch loads the config once, then invokes onChange with the
// re-parsed config whenever the file changes. The CLI's wire helper
// loads its config through Load/LoadFile and does not call Watch.
func Watch(workspaceDir string, onChange func(*Config)) (*Config, error) {
	configPath := filepath.Join(workspaceDir, configRelPath)
	cfg, err := Load(workspaceDir)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var reloaded Config
		if err := v.Unmarshal(&reloaded); err != nil {
			return
		}
		applyDefaults(v, &reloaded)
		if onChange != nil {
			onChange(&reloaded)
		}
	})
	v.WatchConfig()

	return cfg, nil
}

// DefaultConfig returns the documented default knob values (spec §6).
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:        3,
		Mode:              "auto",
		AgentsMode:        "append",
		Executor:          "codex",
		ExecIdleTimeoutMs: 20 * 60 * 1000,
		TerminateOnResult: true,
		FullAuto:          true,
		SkipGitRepoCheck:  true,
		ContinueOnFailure: true,
		Tag:               "master",
		TaskStore: TaskStoreConfig{
			Backend:  "json",
			Path:     "tasks.json",
			SeedFile: "tasks.json",
		},
		Metrics: MetricsConfig{},
	}
}

// applyDefaults fills in zero-valued fields with DefaultConfig()'s
// values. Booleans can't use the zero-value check (false is also a
// legitimate explicit setting), so those are resolved against v.IsSet
// instead — v may be nil when called with no backing viper instance
// (not currently the case, but kept defensive for callers that only
// have a Config).
func applyDefaults(v *viper.Viper, cfg *Config) {
	defaults := DefaultConfig()

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.Mode == "" {
		cfg.Mode = defaults.Mode
	}
	if cfg.AgentsMode == "" {
		cfg.AgentsMode = defaults.AgentsMode
	}
	if cfg.Executor == "" {
		cfg.Executor = defaults.Executor
	}
	if cfg.ExecIdleTimeoutMs == 0 {
		cfg.ExecIdleTimeoutMs = defaults.ExecIdleTimeoutMs
	}
	if cfg.Tag == "" {
		cfg.Tag = defaults.Tag
	}
	if cfg.TaskStore.Backend == "" {
		cfg.TaskStore.Backend = defaults.TaskStore.Backend
	}
	if cfg.TaskStore.Path == "" {
		cfg.TaskStore.Path = defaults.TaskStore.Path
	}
	if cfg.TaskStore.SeedFile == "" {
		cfg.TaskStore.SeedFile = defaults.TaskStore.SeedFile
	}
	if v == nil || !v.IsSet("terminate_on_result") {
		cfg.TerminateOnResult = defaults.TerminateOnResult
	}
	if v == nil || !v.IsSet("full_auto") {
		cfg.FullAuto = defaults.FullAuto
	}
	if v == nil || !v.IsSet("skip_git_repo_check") {
		cfg.SkipGitRepoCheck = defaults.SkipGitRepoCheck
	}
	if v == nil || !v.IsSet("continue_on_failure") {
		cfg.ContinueOnFailure = defaults.ContinueOnFailure
	}
}
