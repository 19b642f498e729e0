// Package config loads lighthouse settings from defaults, an optional YAML
// file and LIGHTHOUSE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/melih/lighthouse-runner/internal/core/lifecycle"
)

const (
	// AppName is the application name.
	AppName = "lighthouse"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LIGHTHOUSE"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "lighthouse"
)

// Config is the complete runtime configuration.
type Config struct {
	ContainerName string        `mapstructure:"container_name"`
	Image         string        `mapstructure:"image"`
	StateFile     string        `mapstructure:"state_file"`
	LogFile       string        `mapstructure:"log_file"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`

	Build    BuildConfig    `mapstructure:"build"`
	Workload WorkloadConfig `mapstructure:"workload"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

type BuildConfig struct {
	Context    string `mapstructure:"context"`
	Dockerfile string `mapstructure:"dockerfile"`
}

type WorkloadConfig struct {
	Command []string `mapstructure:"command"`
	Probe   []string `mapstructure:"probe"`
	Kill    []string `mapstructure:"kill"`
	LogPath string   `mapstructure:"log_path"`
}

type RuntimeConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	BuildTimeout time.Duration `mapstructure:"build_timeout"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		ContainerName: "lighthouse-workload",
		Image:         "lighthouse-workload:latest",
		StateFile:     "workload/process_state.json",
		LogFile:       "workload/app_host.log",
		PollInterval:  time.Second,
		Build: BuildConfig{
			Context:    ".",
			Dockerfile: "Dockerfile",
		},
		Workload: WorkloadConfig{
			Command: []string{"/usr/local/bin/lighthouse-workload"},
			Probe:   []string{"pgrep", "-f", "lighthouse-workload"},
			Kill:    []string{"pkill", "-9", "-f", "lighthouse-workload"},
			LogPath: "/app/app.log",
		},
		Runtime: RuntimeConfig{
			Timeout:      30 * time.Second,
			BuildTimeout: 10 * time.Minute,
		},
		HTTP: HTTPConfig{Addr: ":3000"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load reads the configuration. When path is empty, lighthouse.yaml is looked
// up in the current directory and its absence is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToArgvHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("container_name", d.ContainerName)
	v.SetDefault("image", d.Image)
	v.SetDefault("state_file", d.StateFile)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("build.context", d.Build.Context)
	v.SetDefault("build.dockerfile", d.Build.Dockerfile)
	v.SetDefault("workload.command", d.Workload.Command)
	v.SetDefault("workload.probe", d.Workload.Probe)
	v.SetDefault("workload.kill", d.Workload.Kill)
	v.SetDefault("workload.log_path", d.Workload.LogPath)
	v.SetDefault("runtime.timeout", d.Runtime.Timeout)
	v.SetDefault("runtime.build_timeout", d.Runtime.BuildTimeout)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("log.level", d.Log.Level)
}

// stringToArgvHookFunc splits a string into whitespace-separated arguments
// when a []string is expected. Command keys set through the environment
// arrive as a single string ("pgrep -f lighthouse-workload").
func stringToArgvHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return strings.Fields(data.(string)), nil
	}
}

// Validate rejects configurations the controller cannot work with.
func (c *Config) Validate() error {
	if err := c.Lifecycle().Validate(); err != nil {
		return err
	}
	var problems []string
	if c.StateFile == "" {
		problems = append(problems, "state_file is empty")
	}
	if c.PollInterval <= 0 {
		problems = append(problems, "poll_interval must be positive")
	}
	if c.Runtime.Timeout <= 0 {
		problems = append(problems, "runtime.timeout must be positive")
	}
	if c.Runtime.BuildTimeout <= 0 {
		problems = append(problems, "runtime.build_timeout must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Lifecycle returns the controller settings.
func (c *Config) Lifecycle() lifecycle.Config {
	return lifecycle.Config{
		ContainerName:   c.ContainerName,
		Image:           c.Image,
		BuildContext:    c.Build.Context,
		WorkloadCommand: c.Workload.Command,
		ProbeCommand:    c.Workload.Probe,
		KillCommand:     c.Workload.Kill,
		WorkloadLogPath: c.Workload.LogPath,
	}
}
