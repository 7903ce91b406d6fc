package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives the watch command. Missing fields keep their defaults so a
// minimal file only needs to name the transport.
type Config struct {
	Bus    BusConfig    `yaml:"bus"`
	Sensor SensorConfig `yaml:"sensor"`
}

type BusConfig struct {
	// Transport selects the bus backend: soft, i2c or mcp2221.
	Transport string `yaml:"transport"`
	// HAL selects the pin backend for the soft transport: rpio, periph,
	// gobot or mcp2221.
	HAL       string `yaml:"hal"`
	Device    string `yaml:"device"`
	SDAPin    string `yaml:"sda_pin"`
	SCLPin    string `yaml:"scl_pin"`
	ClockKHz  int    `yaml:"clock_khz"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type SensorConfig struct {
	Kind        string `yaml:"kind"`
	IntervalMs  int    `yaml:"interval_ms"`
	TickMs      int    `yaml:"tick_ms"`
	ValidateCRC bool   `yaml:"validate_crc"`
}

func defaultConfig() Config {
	return Config{
		Bus: BusConfig{
			Transport: "soft",
			HAL:       "rpio",
			Device:    "/dev/i2c-1",
			SDAPin:    "2",
			SCLPin:    "3",
			ClockKHz:  100,
			TimeoutMs: 1000,
		},
		Sensor: SensorConfig{
			Kind:       "aht21",
			IntervalMs: 100,
			TickMs:     5,
		},
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	err = yaml.Unmarshal(raw, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not parse config file: %w", err)
	}
	return cfg, nil
}

func (c BusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c SensorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c SensorConfig) TickPeriod() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}
