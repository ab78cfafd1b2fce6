package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roman-kulish/wisense/internal/wifi"
)

// Run samples Wi-Fi metrics until ctx is cancelled or the user quits, then
// exports the session. With interactive unset no terminal UI is started.
func Run(ctx context.Context, config *Config, logger *slog.Logger, interactive bool) error {
	dataDir, err := DataDirectory(&config.Storage)
	if err != nil {
		return err
	}

	source := wifi.NewCommandSource(config.Source.Command,
		wifi.WithArgs(config.Source.Args...),
		wifi.WithSudo(config.Source.Sudo),
	)
	logger.Info("starting session", slog.String("source", source.String()), slog.String("dataDirectory", dataDir))

	sess, err := NewSession(ctx, config, dataDir, time.Now(), source, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Error(fmt.Sprintf("error closing journal: %s", cerr.Error()))
		}
	}()

	if config.Metrics.Listen != "" {
		stop := serveMetrics(config.Metrics.Listen, logger)
		defer stop()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(runCtx); err != nil {
			logger.Error(fmt.Sprintf("acquisition stopped: %s", err.Error()))
			cancel()
		}
	}()

	if interactive {
		if err = runUI(runCtx, sess, config); err != nil {
			logger.Error(err.Error())
		}
	} else {
		logger.Info("running headless, interrupt to stop", slog.String("export", sess.ExportPath()))
		<-runCtx.Done()
	}

	cancel()
	wg.Wait()

	return sess.Finish(context.WithoutCancel(ctx))
}

// OpenLogFile opens the configured log file for appending. Relative paths
// are resolved against the data directory.
func OpenLogFile(config *Config) (*os.File, error) {
	dir, err := DataDirectory(&config.Storage)
	if err != nil {
		return nil, err
	}

	path := config.Settings.LogFile
	if path == "" {
		path = defaultLogFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// DataDirectory resolves the configured data directory against the working
// directory and creates it when missing.
func DataDirectory(config *StorageConfig) (string, error) {
	dir := config.DataDirectory
	if dir == "" {
		dir = defaultDataDir
	}

	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating data directory '%s': %w", dir, err)
		}
	case err != nil:
		return "", fmt.Errorf("checking data directory '%s': %w", dir, err)
	case !stat.IsDir():
		return "", fmt.Errorf("invalid data directory '%s'", dir)
	}

	return dir, nil
}
