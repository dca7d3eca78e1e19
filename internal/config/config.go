package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAddress = errors.New("MAC address is required")
	ErrNotDirectory   = errors.New("is not directory")
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	BLEAdapter  string
	ScanTimeout time.Duration

	// MQTTBroker empty means the reading is only written to disk.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	// Address and OutputDir come from the command line, see SetTarget.
	Address   string
	OutputDir string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	bleAdapter := strings.TrimSpace(os.Getenv("BLE_ADAPTER"))
	if bleAdapter == "" {
		bleAdapter = "hci0"
	}

	scanTimeoutStr := strings.TrimSpace(os.Getenv("SCAN_TIMEOUT"))
	if scanTimeoutStr == "" {
		scanTimeoutStr = "5s"
	}
	scanTimeout, err := time.ParseDuration(scanTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SCAN_TIMEOUT %q: %w", scanTimeoutStr, err)
	}
	if scanTimeout <= 0 {
		return Config{}, fmt.Errorf("SCAN_TIMEOUT must be positive, got %v", scanTimeout)
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "switchbot-scan"
	}

	mqttTopicPrefix := strings.Trim(strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX")), "/")
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "switchbot"
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		BLEAdapter:      bleAdapter,
		ScanTimeout:     scanTimeout,
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    mqttClientID,
		MQTTTopicPrefix: mqttTopicPrefix,
	}, nil
}

// SetTarget validates the command line arguments and stores them on c.
// The address is lowercased; an empty dir means the working directory.
func (c *Config) SetTarget(address, dir string) error {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return ErrMissingAddress
	}

	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getwd: %w", err)
		}
		dir = wd
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%s %w", dir, ErrNotDirectory)
	}

	c.Address = address
	c.OutputDir = dir
	return nil
}

// PublishEnabled reports whether the reading should also go to MQTT.
func (c Config) PublishEnabled() bool {
	return c.MQTTBroker != ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
