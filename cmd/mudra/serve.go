package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var withTray bool

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run recognition and the settings server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rootOpts.configPath, withTray)
		},
	}
	cmd.Flags().BoolVar(&withTray, "tray", false, "show the menu bar icon")
	return cmd
}

func runServe(parent context.Context, configPath string, withTray bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(app.Options{Config: *cfg, Logger: logger, Tray: withTray})
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("mudra starting", zap.String("config", configPath), zap.String("addr", cfg.Server.Addr))

	t := a.Tray()
	if t == nil {
		return a.Run(ctx)
	}

	// The menu bar owns the main goroutine.
	t.OnQuit(stop)
	t.OnSettings(func() { openSettings(cfg.Server.Addr, logger) })

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errCh
}

func openSettings(addr string, logger *zap.Logger) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		logger.Warn("cannot build settings url", zap.String("addr", addr), zap.Error(err))
		return
	}
	if host == "" {
		host = "localhost"
	}
	url := fmt.Sprintf("http://%s", net.JoinHostPort(host, port))
	if err := exec.Command("open", url).Start(); err != nil {
		logger.Warn("opening settings", zap.String("url", url), zap.Error(err))
	}
}
