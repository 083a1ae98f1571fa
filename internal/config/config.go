package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	// Monitor is the display output index captured by `dupcap run` (0 = primary).
	Monitor int `mapstructure:"monitor" yaml:"monitor"`

	// Preview controls whether sessions open a live preview window.
	Preview bool `mapstructure:"preview" yaml:"preview"`

	// TickIntervalMs is the pacing of the outer polling loop in `dupcap run`.
	// Each tick clears freshness and runs one frame update per session.
	TickIntervalMs int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		Monitor:        0,
		Preview:        true,
		TickIntervalMs: 16,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dupcap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DUPCAP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("monitor", cfg.Monitor)
	viper.Set("preview", cfg.Preview)
	viper.Set("tick_interval_ms", cfg.TickIntervalMs)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "dupcap.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	return viper.WriteConfigAs(cfgPath)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Dupcap")
	case "darwin":
		return "/Library/Application Support/Dupcap"
	default:
		return "/etc/dupcap"
	}
}
