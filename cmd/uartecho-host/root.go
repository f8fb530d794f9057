package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jangala-dev/tinygo-uartecho/config"
	"github.com/jangala-dev/tinygo-uartecho/echo"
	"github.com/jangala-dev/tinygo-uartecho/observability"
	"github.com/jangala-dev/tinygo-uartecho/serialport"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath string
	device     string
	baud       uint32
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "uartecho-host",
		Short:        "Echo every byte received on a serial device back to the sender",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVarP(&opts.device, "device", "d", "", "serial device, overrides serial.device")
	cmd.Flags().Uint32VarP(&opts.baud, "baud", "b", 0, "baud rate, overrides serial.baud")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error; overrides log.level")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// loadConfig applies explicitly set flags on top of file/env configuration.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	flags := cmd.Flags()
	return config.Load(opts.configPath, func(c *config.Config) {
		if flags.Changed("device") {
			c.Serial.Device = opts.device
		}
		if flags.Changed("baud") {
			c.Serial.Baud = opts.baud
		}
		if flags.Changed("log-level") {
			c.Log.Level = opts.logLevel
		}
	})
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	port, err := serialport.Open(serialport.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		logger.Error("open serial port", zap.Error(err))
		return err
	}
	defer func() { _ = port.Close() }()

	ctrl := echo.NewControllerWithBaudRate(cfg.Serial.Baud)
	logger.Info("echo started",
		zap.String("device", cfg.Serial.Device),
		zap.Uint32("baud", ctrl.BaudRate()),
		zap.Duration("read_timeout", cfg.Serial.ReadTimeout),
	)

	err = echo.Run(ctx, port, ctrl)

	logger.Info("echo stopped", zap.Uint64("echoed", ctrl.EchoCount()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
