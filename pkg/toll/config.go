package toll

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the toll rates and camera parameters read from the
// key=value config collaborator.
type Config struct {
	Rates     RateTable
	CameraW   int
	CameraH   int
	CameraFPS int
}

// DefaultConfig returns the documented defaults written on first run.
func DefaultConfig() Config {
	return Config{
		Rates: RateTable{
			ClassCar:   5000,
			ClassTruck: 10000,
			ClassBus:   7500,
		},
		CameraW:   1920,
		CameraH:   1080,
		CameraFPS: 30,
	}
}

// LoadConfig reads the config file, creating it with defaults when missing.
// Lines are key=value; empty lines and #-comments are ignored; unknown keys
// are skipped so the file can carry operator notes.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		cfg := DefaultConfig()
		if err := writeDefaultConfig(path); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	defer f.Close()

	cfg := Config{Rates: RateTable{}}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if err := cfg.apply(key, val); err != nil {
			return Config{}, fmt.Errorf("config key %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(key, val string) error {
	switch key {
	case "toll_rate_car", "toll_rate_truck", "toll_rate_bus":
		cents, err := ParseAmount(val)
		if err != nil {
			return err
		}
		if cents < 0 {
			return fmt.Errorf("negative toll rate %s", val)
		}
		switch key {
		case "toll_rate_car":
			c.Rates[ClassCar] = cents
		case "toll_rate_truck":
			c.Rates[ClassTruck] = cents
		case "toll_rate_bus":
			c.Rates[ClassBus] = cents
		}
	case "camera_resolution_width", "camera_resolution_height", "camera_fps":
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("non-positive value %d", n)
		}
		switch key {
		case "camera_resolution_width":
			c.CameraW = n
		case "camera_resolution_height":
			c.CameraH = n
		case "camera_fps":
			c.CameraFPS = n
		}
	}
	return nil
}

// validate enforces the startup contract: a rate for every vehicle class
// and positive camera parameters. A missing class is a configuration
// error, never patched with a runtime default.
func (c *Config) validate() error {
	if err := c.Rates.Validate(); err != nil {
		return err
	}
	if c.CameraW <= 0 || c.CameraH <= 0 || c.CameraFPS <= 0 {
		return fmt.Errorf("camera parameters incomplete: %dx%d@%d", c.CameraW, c.CameraH, c.CameraFPS)
	}
	return nil
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content := "# Toll Rates\n" +
		"toll_rate_car=50.0\n" +
		"toll_rate_truck=100.0\n" +
		"toll_rate_bus=75.0\n\n" +
		"# Camera Settings\n" +
		"camera_resolution_width=1920\n" +
		"camera_resolution_height=1080\n" +
		"camera_fps=30\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
