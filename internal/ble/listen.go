package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"
)

// Session is a bounded scan. Scan blocks until the window has elapsed and
// calls handle synchronously, once per received advertisement. It returns
// nil when the window closes and ctx.Err() when ctx is cancelled first.
type Session interface {
	Scan(ctx context.Context, window time.Duration, handle func(Event)) error
}

type Options struct {
	Adapter string // "hci0" by default
}

// radio is the part of *bluetooth.Adapter a scan session uses.
type radio interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

const stopRetryInterval = 50 * time.Millisecond

// Listener wraps BlueZ scanning with a scan window.
type Listener struct {
	adapter radio
	opts    Options
	logger  *slog.Logger
}

var _ Session = (*Listener)(nil)

func NewListener(opts Options, logger *slog.Logger) *Listener {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Listener{
		adapter: newAdapter(opts.Adapter),
		opts:    opts,
		logger:  logger,
	}
}

func (l *Listener) Scan(ctx context.Context, window time.Duration, handle func(Event)) error {
	l.logger.Debug("ble: enabling adapter", "adapter", l.opts.Adapter)
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", l.opts.Adapter, err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-scanCtx.Done():
		case <-done:
			return
		}
		// StopScan fails until Scan has registered itself; keep trying.
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := l.adapter.StopScan(); err == nil {
				return
			}
			select {
			case <-done:
				return
			case <-time.After(stopRetryInterval):
			}
		}
	}()

	l.logger.Info("ble: scanning started", "adapter", l.opts.Adapter, "window", window)

	// adapter.Scan blocks until StopScan() or error.
	var seen int
	err := l.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		seen++
		ev := eventFromScanResult(r)
		l.logger.Debug("ble: advertisement",
			"addr", ev.Address,
			"rssi", ev.RSSI,
			"services", serviceUUIDs(r.ServiceData()),
		)
		if handle != nil {
			handle(ev)
		}
	})
	close(done)

	if ctx.Err() != nil {
		l.logger.Info("ble: scanning stopped (context canceled)", "advertisements", seen)
		return ctx.Err()
	}
	if err != nil && scanCtx.Err() == nil {
		return fmt.Errorf("ble scan: %w", err)
	}

	l.logger.Info("ble: scanning stopped", "advertisements", seen)
	return nil
}
