// Package config reads the relay settings from the environment.
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	EnvMeterAddress  = "CO2_METER_BLE_MAC_ADDRESS"
	EnvPostURL       = "GAS_POST_URL"
	EnvPostToken     = "GAS_POST_TOKEN"
	EnvPollInterval  = "POLL_INTERVAL_SECONDS"
	EnvScanTimeout   = "SCAN_TIMEOUT_SECONDS"
	EnvHTTPTimeout   = "HTTP_TIMEOUT_SECONDS"
	EnvRetryCount    = "POST_RETRY_COUNT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvHCIDevice     = "BLE_HCI_DEVICE_ID"
	EnvMetricsListen = "METRICS_LISTEN_ADDRESS"
)

var (
	ErrConfigurationMissing = errors.New("required setting missing")
	ErrInvalidSetting       = errors.New("invalid setting")
)

// Config is read once at startup and not modified afterwards.
type Config struct {
	MeterAddress string
	PostURL      string
	PostToken    string

	PollInterval time.Duration
	ScanDuration time.Duration
	HTTPTimeout  time.Duration
	MaxAttempts  int

	LogLevel      log.Level
	HCIDevice     int
	MetricsListen string
}

// LoadDotEnv loads variables from the given files into the environment.
// Variables that are already set win, and missing files are not an error.
func LoadDotEnv(filenames ...string) error {
	for _, name := range filenames {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return errors.Wrapf(err, "failed to load %s", name)
		}
	}
	return nil
}

// Load builds a Config from the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	var cfg Config

	addr, err := required(getenv, EnvMeterAddress)
	if err != nil {
		return Config{}, err
	}
	if cfg.MeterAddress, err = canonicalMAC(addr); err != nil {
		return Config{}, errors.Wrapf(ErrInvalidSetting, "%s %q: %s", EnvMeterAddress, addr, err)
	}
	if cfg.PostURL, err = required(getenv, EnvPostURL); err != nil {
		return Config{}, err
	}
	if cfg.PostToken, err = required(getenv, EnvPostToken); err != nil {
		return Config{}, err
	}

	pollSeconds, err := intSetting(getenv, EnvPollInterval, 300, 0)
	if err != nil {
		return Config{}, err
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	if cfg.ScanDuration, err = secondsSetting(getenv, EnvScanTimeout, 12); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = secondsSetting(getenv, EnvHTTPTimeout, 15); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = intSetting(getenv, EnvRetryCount, 3, 1); err != nil {
		return Config{}, err
	}
	if cfg.HCIDevice, err = intSetting(getenv, EnvHCIDevice, 0, 0); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = log.InfoLevel
	if s := strings.TrimSpace(getenv(EnvLogLevel)); s != "" {
		if cfg.LogLevel, err = log.ParseLevel(s); err != nil {
			return Config{}, errors.Wrapf(ErrInvalidSetting, "%s %q", EnvLogLevel, s)
		}
	}

	cfg.MetricsListen = strings.TrimSpace(getenv(EnvMetricsListen))

	return cfg, nil
}

func required(getenv func(string) string, name string) (string, error) {
	value := strings.TrimSpace(getenv(name))
	if value == "" {
		return "", errors.Wrapf(ErrConfigurationMissing, "%s must be set", name)
	}
	return value, nil
}

func intSetting(getenv func(string) string, name string, def, min int) (int, error) {
	s := strings.TrimSpace(getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidSetting, "%s %q is not an integer", name, s)
	}
	if v < min {
		return 0, errors.Wrapf(ErrInvalidSetting, "%s must be at least %d, got %d", name, min, v)
	}
	return v, nil
}

// secondsSetting accepts fractional seconds, e.g. "12" or "2.5".
func secondsSetting(getenv func(string) string, name string, def float64) (time.Duration, error) {
	s := strings.TrimSpace(getenv(name))
	seconds := def
	if s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidSetting, "%s %q is not a number", name, s)
		}
		seconds = v
	}
	if seconds <= 0 {
		return 0, errors.Wrapf(ErrInvalidSetting, "%s must be positive, got %v", name, seconds)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func canonicalMAC(s string) (string, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return "", err
	}
	if len(hw) != 6 {
		return "", errors.Errorf("expected a 6 byte address, got %d bytes", len(hw))
	}
	return strings.ToUpper(hw.String()), nil
}
