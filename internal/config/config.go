// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Database       struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Images struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"images"`
	Camera struct {
		Driver  string `mapstructure:"driver"` // "sim" or "command"
		Command string `mapstructure:"command"`
		Width   int    `mapstructure:"width"`
		Height  int    `mapstructure:"height"`
	} `mapstructure:"camera"`
	Motor struct {
		Driver           string        `mapstructure:"driver"` // "sim" or "gpio"
		GPIORoot         string        `mapstructure:"gpio_root"`
		GPIOLine         int           `mapstructure:"gpio_line"`
		StepsPerRotation int           `mapstructure:"steps_per_rotation"`
		PulseOn          time.Duration `mapstructure:"pulse_on"`
		PulseOff         time.Duration `mapstructure:"pulse_off"`
	} `mapstructure:"motor"`
	Trigger struct {
		Enabled  bool   `mapstructure:"enabled"`
		Driver   string `mapstructure:"driver"` // "file" or "gpio"
		Path     string `mapstructure:"path"`
		GPIOLine int    `mapstructure:"gpio_line"`
	} `mapstructure:"trigger"`
	History struct {
		RetentionDays      int `mapstructure:"retention_days"`
		PruneIntervalHours int `mapstructure:"prune_interval_hours"`
	} `mapstructure:"history"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")
	v.AddConfigPath(".")

	// --- Environment Variable Overrides ---
	// e.g., TURNTABLE_MOTOR_DRIVER will override the `motor.driver` key.
	v.SetEnvPrefix("TURNTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("request_timeout", "60s")
	v.SetDefault("database.path", "./turntable.db")
	v.SetDefault("images.path", "./images")

	v.SetDefault("camera.driver", "sim")
	v.SetDefault("camera.command", "libcamera-still -n -t 1 -e jpg -o -")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)

	v.SetDefault("motor.driver", "sim")
	v.SetDefault("motor.gpio_root", "/sys/class/gpio")
	v.SetDefault("motor.gpio_line", 17)
	v.SetDefault("motor.steps_per_rotation", 200)
	v.SetDefault("motor.pulse_on", "2ms")
	v.SetDefault("motor.pulse_off", "2ms")

	v.SetDefault("trigger.enabled", false)
	v.SetDefault("trigger.driver", "file")
	v.SetDefault("trigger.path", "./advance")
	v.SetDefault("trigger.gpio_line", 27)

	v.SetDefault("history.retention_days", 30)
	v.SetDefault("history.prune_interval_hours", 24)
}
