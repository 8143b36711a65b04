// Package config loads the settings of a protocol run from a YAML file,
// LABROBOT_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/labrobot/labrobot-go/pkg/types"
)

// EnvPrefix prefixes every environment override (LABROBOT_LOG_LEVEL, ...).
const EnvPrefix = "LABROBOT"

// Config holds run settings.
type Config struct {
	DriverTimeout time.Duration   `mapstructure:"driver_timeout"`
	LogLevel      string          `mapstructure:"log_level"`
	RunLog        string          `mapstructure:"run_log"`
	LabwareDirs   []string        `mapstructure:"labware_dirs"`
	Simulator     SimulatorConfig `mapstructure:"simulator"`
}

// SimulatorConfig describes the simulated robot.
type SimulatorConfig struct {
	// Latency is added to every simulated command.
	Latency time.Duration `mapstructure:"latency"`

	// Left and Right name the pipettes physically attached. Empty mounts
	// accept whatever a script loads.
	Left  string `mapstructure:"left"`
	Right string `mapstructure:"right"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DriverTimeout: 30 * time.Second,
		LogLevel:      "info",
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"driver-timeout":    "driver_timeout",
	"log-level":         "log_level",
	"run-log":           "run_log",
	"labware-dir":       "labware_dirs",
	"simulator-latency": "simulator.latency",
	"left":              "simulator.left",
	"right":             "simulator.right",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *flag.FlagSet) {
	d := Default()
	fs.String("config", "", "Configuration file (YAML)")
	fs.Duration("driver-timeout", d.DriverTimeout, "Timeout for a single driver command")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn, error")
	fs.String("run-log", "", "Write the run event log (CBOR) to this file")
	fs.StringSlice("labware-dir", nil, "Extra labware definition directory (repeatable)")
	fs.Duration("simulator-latency", 0, "Simulated latency per driver command")
	fs.String("left", "", "Pipette attached to the left mount of the simulator")
	fs.String("right", "", "Pipette attached to the right mount of the simulator")
}

// Load resolves the configuration. Flags registered on fs with
// RegisterFlags override the environment, which overrides the file.
// A nil fs reads only the file and the environment.
func Load(fs *flag.FlagSet) (Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("driver_timeout", d.DriverTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("run_log", "")
	v.SetDefault("labware_dirs", []string{})
	v.SetDefault("simulator.latency", time.Duration(0))
	v.SetDefault("simulator.left", "")
	v.SetDefault("simulator.right", "")

	v.SetConfigType("yaml")
	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			cfgPath = f.Value.String()
		}
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("labrobot")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "labrobot"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.DriverTimeout <= 0 {
		return fmt.Errorf("driver_timeout must be positive, got %s", c.DriverTimeout)
	}
	if c.Simulator.Latency < 0 {
		return fmt.Errorf("simulator.latency must not be negative, got %s", c.Simulator.Latency)
	}
	if c.Simulator.Latency >= c.DriverTimeout {
		return fmt.Errorf("simulator.latency %s would always exceed driver_timeout %s", c.Simulator.Latency, c.DriverTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Attached returns the simulated attachments keyed by mount.
func (c Config) Attached() map[types.Mount]string {
	out := make(map[types.Mount]string)
	if c.Simulator.Left != "" {
		out[types.MountLeft] = c.Simulator.Left
	}
	if c.Simulator.Right != "" {
		out[types.MountRight] = c.Simulator.Right
	}
	return out
}
