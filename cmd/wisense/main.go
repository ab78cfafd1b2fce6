package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"

	"github.com/roman-kulish/wisense/cmd/wisense/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var configPath string
	var headless bool
	flag.StringVar(&configPath, "c", "", "Path to the configuration file (defaults apply when omitted)")
	flag.BoolVar(&headless, "headless", false, "Sample without the terminal UI")
	flag.Parse()

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	level, _ := config.Settings.Level()
	logLevel.Set(level)

	interactive := !headless && term.IsTerminal(os.Stdin.Fd())

	// the terminal UI owns stdout
	var logFile *os.File
	if interactive {
		if logFile, err = app.OpenLogFile(config); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: &logLevel}))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = app.Run(ctx, config, logger, interactive)
	cancel()

	if err != nil {
		logger.Error(err.Error())
		if interactive {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
