// Tests for the configuration loading logic using Viper.

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults when no config file", func(t *testing.T) {
		// Ensure no config file exists for this test
		os.Remove("config.yml")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}

		if cfg.Port != 8000 {
			t.Errorf("Expected default port 8000, got %d", cfg.Port)
		}
		if cfg.Database.Path != "./turntable.db" {
			t.Errorf("Expected default db path './turntable.db', got '%s'", cfg.Database.Path)
		}
		if cfg.Images.Path != "./images" {
			t.Errorf("Expected default images path './images', got '%s'", cfg.Images.Path)
		}
		if cfg.RequestTimeout != 60*time.Second {
			t.Errorf("Expected default request timeout of 60s, got %v", cfg.RequestTimeout)
		}
		if cfg.Trigger.Driver != "file" {
			t.Errorf("Expected file trigger by default, got %s", cfg.Trigger.Driver)
		}
		if cfg.Motor.StepsPerRotation != 200 {
			t.Errorf("Expected default 200 steps per rotation, got %d", cfg.Motor.StepsPerRotation)
		}
		if cfg.Motor.PulseOn != 2*time.Millisecond {
			t.Errorf("Expected default pulse_on of 2ms, got %v", cfg.Motor.PulseOn)
		}
		if cfg.Camera.Driver != "sim" || cfg.Motor.Driver != "sim" {
			t.Errorf("Expected simulated drivers by default, got camera=%s motor=%s", cfg.Camera.Driver, cfg.Motor.Driver)
		}
	})

	t.Run("Loads from config file", func(t *testing.T) {
		configContent := `
port: 9999
images:
  path: "/tmp/test-images"
motor:
  driver: gpio
  gpio_line: 4
  pulse_on: 500us
  pulse_off: 1ms
trigger:
  enabled: true
  driver: gpio
  gpio_line: 5
unknown_setting: "should be ignored"
`
		// Viper looks in the CWD, so t.TempDir() is not used here.
		configPath := "config.yml"
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write test config file: %v", err)
		}
		defer os.Remove(configPath)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}

		if cfg.Port != 9999 {
			t.Errorf("Expected port 9999, got %d", cfg.Port)
		}
		if cfg.Images.Path != "/tmp/test-images" {
			t.Errorf("Expected images path '/tmp/test-images', got '%s'", cfg.Images.Path)
		}
		if cfg.Motor.Driver != "gpio" || cfg.Motor.GPIOLine != 4 {
			t.Errorf("Expected gpio motor on line 4, got %s/%d", cfg.Motor.Driver, cfg.Motor.GPIOLine)
		}
		if cfg.Motor.PulseOn != 500*time.Microsecond || cfg.Motor.PulseOff != time.Millisecond {
			t.Errorf("Unexpected pulse timing %v/%v", cfg.Motor.PulseOn, cfg.Motor.PulseOff)
		}
		if !cfg.Trigger.Enabled {
			t.Error("Expected trigger to be enabled")
		}
		if cfg.Trigger.Driver != "gpio" || cfg.Trigger.GPIOLine != 5 {
			t.Errorf("Expected gpio trigger on line 5, got %s/%d", cfg.Trigger.Driver, cfg.Trigger.GPIOLine)
		}
		if cfg.History.RetentionDays != 30 {
			t.Errorf("Expected default retention of 30 days, got %d", cfg.History.RetentionDays)
		}
	})

	t.Run("Environment overrides", func(t *testing.T) {
		os.Remove("config.yml")
		t.Setenv("TURNTABLE_PORT", "7000")
		t.Setenv("TURNTABLE_MOTOR_STEPS_PER_ROTATION", "400")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}
		if cfg.Port != 7000 {
			t.Errorf("Expected port 7000 from env, got %d", cfg.Port)
		}
		if cfg.Motor.StepsPerRotation != 400 {
			t.Errorf("Expected 400 steps from env, got %d", cfg.Motor.StepsPerRotation)
		}
	})
}
