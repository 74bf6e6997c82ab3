// Package config loads the device fleet served by alpacapi.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"alpacapi/pkg/alpaca"

	"github.com/spf13/viper"
)

// ServerConfig is what the management API reports about the server.
type ServerConfig struct {
	Name                string `mapstructure:"name"`
	Manufacturer        string `mapstructure:"manufacturer"`
	ManufacturerVersion string `mapstructure:"manufacturer_version"`
	Location            string `mapstructure:"location"`
}

// DeviceConfig describes one device. Only the fields of its type are used.
type DeviceConfig struct {
	Type        string `mapstructure:"type"`
	Number      int    `mapstructure:"number"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`

	// Rotator
	StepsPerRev int     `mapstructure:"steps_per_rev"`
	StepRate    float64 `mapstructure:"step_rate"`
	CanReverse  bool    `mapstructure:"can_reverse"`

	// Camera
	Width        int           `mapstructure:"width"`
	Height       int           `mapstructure:"height"`
	BitDepth     int           `mapstructure:"bit_depth"`
	Color        bool          `mapstructure:"color"`
	PeakRate     float64       `mapstructure:"peak_rate"`
	ExposureMin  time.Duration `mapstructure:"exposure_min"`
	ExposureMax  time.Duration `mapstructure:"exposure_max"`
	AutoExposure bool          `mapstructure:"auto_exposure"`
	// AdjustStep is the smallest auto-exposure correction, Exposure the
	// starting video exposure.
	AdjustStep  time.Duration `mapstructure:"adjust_step"`
	Exposure    time.Duration `mapstructure:"exposure"`
	Temperature float64       `mapstructure:"temperature"`
}

// DeviceType parses the configured type.
func (c DeviceConfig) DeviceType() (alpaca.DeviceType, error) {
	return alpaca.ParseDeviceType(c.Type)
}

// TelemetryConfig controls MQTT state publishing. The broker itself is set
// up on the server setup page.
type TelemetryConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	ClientID string        `mapstructure:"client_id"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Devices   []DeviceConfig  `mapstructure:"devices"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Device types with a driver.
var supportedTypes = map[alpaca.DeviceType]bool{
	alpaca.DeviceCamera:  true,
	alpaca.DeviceRotator: true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "AlpacaPi")
	v.SetDefault("server.manufacturer", "AlpacaPi")
	v.SetDefault("server.manufacturer_version", "1.0")
	v.SetDefault("server.location", "Observatory")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.interval", 10*time.Second)
	v.SetDefault("telemetry.client_id", "alpacapi")
}

// DefaultDevices is the fleet used when the config names none.
func DefaultDevices() []DeviceConfig {
	return []DeviceConfig{
		{Type: "rotator", Number: 0, Name: "Rotator Simulator", CanReverse: true},
		{Type: "camera", Number: 0, Name: "Camera Simulator", AutoExposure: true},
	}
}

// Load reads the config file at path, if any, with ALPACA_ environment
// variables taking precedence (ALPACA_TELEMETRY_ENABLED and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ALPACA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = DefaultDevices()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for i, d := range c.Devices {
		t, err := d.DeviceType()
		if err != nil {
			errs = append(errs, fmt.Errorf("device %d: %w", i, err))
			continue
		}
		if !supportedTypes[t] {
			errs = append(errs, fmt.Errorf("device %d: no driver for %s", i, t))
		}
		if d.Number < 0 {
			errs = append(errs, fmt.Errorf("device %d: negative device number %d", i, d.Number))
		}

		key := fmt.Sprintf("%s/%d", t, d.Number)
		if seen[key] {
			errs = append(errs, fmt.Errorf("device %d: duplicate %s", i, key))
		}
		seen[key] = true

		if d.ExposureMin < 0 || d.ExposureMax < 0 || (d.ExposureMax > 0 && d.ExposureMin > d.ExposureMax) {
			errs = append(errs, fmt.Errorf("device %d: invalid exposure range [%v, %v]", i, d.ExposureMin, d.ExposureMax))
		}
		if d.AdjustStep < 0 || d.Exposure < 0 {
			errs = append(errs, fmt.Errorf("device %d: negative exposure setting", i))
		}
		if d.BitDepth < 0 || d.BitDepth > 16 {
			errs = append(errs, fmt.Errorf("device %d: bit depth %d out of range [1,16]", i, d.BitDepth))
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Interval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry interval must be positive, got %v", c.Telemetry.Interval))
	}
	return errors.Join(errs...)
}
