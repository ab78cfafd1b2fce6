package wifi

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaterialBaseline Material = "baseline"
	MaterialWood     Material = "wood"
	MaterialPlastic  Material = "plastic"
	MaterialGlass    Material = "glass"
	MaterialAluminum Material = "aluminum"
	MaterialCopper   Material = "copper"
	MaterialBrass    Material = "brass"

	Band24GHz Band = "2.4"
	Band5GHz  Band = "5"

	MetricRSSI  Metric = "rssi"
	MetricNoise Metric = "noise"
	MetricSNR   Metric = "snr"
)

// Materials lists the closed set of material labels in selector order:
// Materials[0] is selected by key "1", Materials[6] by key "7".
var Materials = []Material{
	MaterialBaseline,
	MaterialWood,
	MaterialPlastic,
	MaterialGlass,
	MaterialAluminum,
	MaterialCopper,
	MaterialBrass,
}

// Metrics lists the metric kinds carried by every Sample.
var Metrics = []Metric{MetricRSSI, MetricNoise, MetricSNR}

// Material is the label of the material under test.
type Material string

func (m Material) String() string {
	return string(m)
}

// Valid reports whether m belongs to the closed material set.
func (m Material) Valid() bool {
	for _, v := range Materials {
		if v == m {
			return true
		}
	}
	return false
}

// MaterialBySelector returns the material bound to the 1-based selector n.
func MaterialBySelector(n int) (Material, bool) {
	if n < 1 || n > len(Materials) {
		return "", false
	}
	return Materials[n-1], true
}

// ParseMaterial parses a lowercase material label.
func ParseMaterial(s string) (Material, error) {
	m := Material(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown material: %q", s)
	}
	return m, nil
}

// Band is the Wi-Fi band in effect when a sample was captured.
type Band string

func (b Band) String() string {
	return string(b)
}

// Toggle returns the other band.
func (b Band) Toggle() Band {
	if b == Band5GHz {
		return Band24GHz
	}
	return Band5GHz
}

// ParseBand parses "2.4" or "5", with an optional "GHz" suffix.
func ParseBand(s string) (Band, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "ghz")
	switch Band(v) {
	case Band24GHz:
		return Band24GHz, nil
	case Band5GHz:
		return Band5GHz, nil
	default:
		return "", fmt.Errorf("unknown band: %q", s)
	}
}

// Metric is one of the signal quality measurements of a Sample.
type Metric string

func (m Metric) String() string {
	return string(m)
}

// Unit returns the display unit of the metric.
func (m Metric) Unit() string {
	if m == MetricSNR {
		return "dB"
	}
	return "dBm"
}

// Reading is the pair of values extracted from one output block of the
// metrics command.
type Reading struct {
	RSSI  float64 // dBm
	Noise float64 // dBm
}

// SNR returns the signal-to-noise ratio derived from the reading.
func (r Reading) SNR() float64 {
	return r.RSSI - r.Noise
}

// Sample is a single measurement frozen with the labels in effect at
// capture time. Samples are immutable once created.
type Sample struct {
	Timestamp time.Time
	RSSI      float64 // dBm
	Noise     float64 // dBm
	SNR       float64 // dB, always RSSI - Noise
	Band      Band
	Material  Material
}

// NewSample builds a Sample, deriving the SNR from rssi and noise.
func NewSample(ts time.Time, rssi, noise float64, band Band, material Material) Sample {
	return Sample{
		Timestamp: ts,
		RSSI:      rssi,
		Noise:     noise,
		SNR:       rssi - noise,
		Band:      band,
		Material:  material,
	}
}

// Value returns the value of the given metric.
func (s Sample) Value(m Metric) float64 {
	switch m {
	case MetricRSSI:
		return s.RSSI
	case MetricNoise:
		return s.Noise
	case MetricSNR:
		return s.SNR
	default:
		return 0
	}
}
