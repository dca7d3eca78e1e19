package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mittyorz/infra-munin/internal/ble"
	"github.com/mittyorz/infra-munin/internal/config"
	"github.com/mittyorz/infra-munin/internal/mqtt"
	"github.com/mittyorz/infra-munin/internal/output"
	"github.com/mittyorz/infra-munin/internal/switchbot"
)

// ErrNotDiscovered means the scan window closed without a decodable
// reading from the target.
var ErrNotDiscovered = errors.New("was not discovered")

const publishConnectTimeout = 5 * time.Second

// Publisher forwards a reading after it has been written to disk.
type Publisher interface {
	Connect(ctx context.Context) error
	PublishReading(msg mqtt.ReadingMessage) error
	Disconnect()
}

// Runner performs one scan session for cfg.Address.
type Runner struct {
	cfg       config.Config
	scanner   ble.Session
	publisher Publisher
	logger    *slog.Logger
	sessionID string
}

// NewRunner wires a session. publisher may be nil.
func NewRunner(cfg config.Config, scanner ble.Session, publisher Publisher, sessionID string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		scanner:   scanner,
		publisher: publisher,
		logger:    logger,
		sessionID: sessionID,
	}
}

// Run builds the BLE listener and optional MQTT client from cfg and runs
// one session.
func Run(ctx context.Context, cfg config.Config) error {
	sessionID := uuid.NewString()
	logger := slog.Default().With("session_id", sessionID, "addr", cfg.Address)

	logger.Info("initializing scan",
		"adapter", cfg.BLEAdapter,
		"window", cfg.ScanTimeout,
		"output_dir", cfg.OutputDir,
		"mqtt_broker", cfg.MQTTBroker,
	)

	listener := ble.NewListener(ble.Options{Adapter: cfg.BLEAdapter}, logger)

	var publisher Publisher
	if cfg.PublishEnabled() {
		publisher = mqtt.NewClient(cfg, logger)
	}

	_, err := NewRunner(cfg, listener, publisher, sessionID, logger).Run(ctx)
	return err
}

// Run scans, writes the dump and publishes it. It returns the path of the
// written file.
func (r *Runner) Run(ctx context.Context) (string, error) {
	reading, err := r.Scan(ctx)
	if err != nil {
		return "", err
	}

	path, err := output.Write(r.cfg.OutputDir, r.cfg.Address, reading)
	if err != nil {
		return "", err
	}
	r.logger.Info("reading written",
		"path", path,
		"T", reading.Temperature,
		"H", reading.Humidity,
		"B", reading.BatteryVoltage,
	)

	if r.publisher != nil {
		if err := r.publish(ctx, reading); err != nil {
			r.logger.Warn("mqtt publish failed; reading kept on disk only", "error", err)
		}
	}

	return path, nil
}

// Scan runs the scan window and returns the last reading decoded for the
// target address.
func (r *Runner) Scan(ctx context.Context) (switchbot.Reading, error) {
	filter := switchbot.NewFilter(r.cfg.Address, switchbot.Decode, r.logger)

	if err := r.scanner.Scan(ctx, r.cfg.ScanTimeout, filter.Handle); err != nil {
		return switchbot.Reading{}, fmt.Errorf("scan: %w", err)
	}

	reading, ok := filter.Reading()
	if !ok {
		return switchbot.Reading{}, fmt.Errorf("%s %w", filter.Address(), ErrNotDiscovered)
	}
	return reading, nil
}

func (r *Runner) publish(ctx context.Context, reading switchbot.Reading) error {
	connectCtx, cancel := context.WithTimeout(ctx, publishConnectTimeout)
	defer cancel()

	defer r.publisher.Disconnect()
	if err := r.publisher.Connect(connectCtx); err != nil {
		return err
	}

	return r.publisher.PublishReading(mqtt.NewReadingMessage(r.cfg.Address, r.sessionID, reading))
}
