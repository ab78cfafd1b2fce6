package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/roman-kulish/wisense/internal/wifi"
)

// TimestampFormat is ISO-8601 with microsecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000000Z07:00"

// ErrExportFailed is returned when neither the primary nor the alternate
// path could be written.
var ErrExportFailed = errors.New("export failed")

// Header is the column order of the export file.
var Header = []string{"timestamp", "band", "material", "rssi_dbm", "noise_dbm", "snr_db"}

// WithAlternate sets the fallback path used when the primary one fails
func WithAlternate(path string) func(*Exporter) {
	return func(e *Exporter) {
		e.alternate = path
	}
}

// WithLogger sets the logger for the exporter
func WithLogger(logger *slog.Logger) func(*Exporter) {
	return func(e *Exporter) {
		e.logger = logger.With(slog.String("component", "export"))
	}
}

// Exporter writes a session as CSV, one row per sample.
type Exporter struct {
	path      string
	alternate string
	logger    *slog.Logger
}

// New creates an Exporter writing to path. The default alternate path is the
// same file name in the system temporary directory.
func New(path string, options ...func(*Exporter)) *Exporter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	e := Exporter{
		path:      path,
		alternate: filepath.Join(os.TempDir(), filepath.Base(path)),
		logger:    logger,
	}

	for _, option := range options {
		option(&e)
	}

	return &e
}

// Path returns the primary export path.
func (e *Exporter) Path() string {
	return e.path
}

// Export replaces the export file with the given samples and returns the
// path actually written. A failed write is retried once at the alternate
// path.
func (e *Exporter) Export(samples []wifi.Sample) (string, error) {
	err := writeFile(e.path, samples)
	if err == nil {
		e.logger.Info("session exported", slog.String("path", e.path), slog.Int("samples", len(samples)))
		return e.path, nil
	}

	if e.alternate == "" || e.alternate == e.path {
		return "", fmt.Errorf("%w: %w", ErrExportFailed, err)
	}

	e.logger.Warn(fmt.Sprintf("error exporting session: %s, retrying at alternate path", err.Error()),
		slog.String("path", e.path),
		slog.String("alternate", e.alternate),
	)

	altErr := writeFile(e.alternate, samples)
	if altErr == nil {
		e.logger.Info("session exported", slog.String("path", e.alternate), slog.Int("samples", len(samples)))
		return e.alternate, nil
	}

	return "", fmt.Errorf("%w: %w", ErrExportFailed, errors.Join(err, altErr))
}

// writeFile writes to a temporary file next to path and renames it into
// place, so a failed export never truncates a previous one.
func writeFile(path string, samples []wifi.Sample) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory '%s': %w", dir, err)
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = Write(f, samples); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing file: %w", err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("renaming file: %w", err)
	}

	return nil
}

// Write encodes samples as CSV with a header row.
func Write(w io.Writer, samples []wifi.Sample) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(Header))
	for _, s := range samples {
		record[0] = s.Timestamp.UTC().Format(TimestampFormat)
		record[1] = s.Band.String()
		record[2] = s.Material.String()
		record[3] = formatFloat(s.RSSI)
		record[4] = formatFloat(s.Noise)
		record[5] = formatFloat(s.SNR)

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing records: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
