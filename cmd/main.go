package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/mittyorz/infra-munin/internal/app"
	"github.com/mittyorz/infra-munin/internal/config"
	"github.com/mittyorz/infra-munin/internal/logging"
)

var version = "dev"
var appName = "switchbot-scan"

type runFunc func(ctx context.Context, cfg config.Config) error

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = newCLI(ctx, cfg, app.Run).Run(os.Args)
	stop()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = errors.New("interrupted")
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func newCLI(ctx context.Context, cfg config.Config, run runFunc) *cli.App {
	c := cli.NewApp()
	c.Name = appName
	c.Usage = "save the latest SwitchBot meter reading as a key/value file"
	c.UsageText = appName + " [options] MAC_address_of_SwitchBot [dir/path/to/save/result]"
	c.Version = version
	c.Flags = []cli.Flag{
		cli.DurationFlag{Name: "timeout, t", Value: cfg.ScanTimeout, Usage: "scan window (SCAN_TIMEOUT)"},
		cli.StringFlag{Name: "adapter, a", Value: cfg.BLEAdapter, Usage: "BlueZ adapter id (BLE_ADAPTER)"},
	}
	c.Action = func(ctx2 *cli.Context) error {
		if err := cfg.SetTarget(ctx2.Args().Get(0), ctx2.Args().Get(1)); err != nil {
			if errors.Is(err, config.ErrMissingAddress) {
				_ = cli.ShowAppHelp(ctx2)
			}
			return err
		}

		timeout := ctx2.Duration("timeout")
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		cfg.ScanTimeout = timeout
		cfg.BLEAdapter = ctx2.String("adapter")

		slog.Info("starting",
			"app", appName,
			"version", version,
			"env", cfg.AppEnv,
			"log_level", cfg.LogLevel.String(),
			"addr", cfg.Address,
		)

		return run(ctx, cfg)
	}
	return c
}
