package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/wisense/internal/wifi"
)

// Summary holds the per-metric aggregate of one material.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
}

// MaterialStats maps each metric to its summary.
type MaterialStats map[wifi.Metric]Summary

// Table is the result of Compute, keyed by material. Materials with no
// samples are absent.
type Table map[wifi.Material]MaterialStats

// Materials returns the materials present in the table in selector order.
func (t Table) Materials() []wifi.Material {
	var out []wifi.Material
	for _, m := range wifi.Materials {
		if _, ok := t[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Compute groups samples by material and summarizes every metric.
func Compute(samples []wifi.Sample) Table {
	grouped := make(map[wifi.Material]map[wifi.Metric][]float64)
	for _, s := range samples {
		byMetric, ok := grouped[s.Material]
		if !ok {
			byMetric = make(map[wifi.Metric][]float64, len(wifi.Metrics))
			grouped[s.Material] = byMetric
		}
		for _, m := range wifi.Metrics {
			byMetric[m] = append(byMetric[m], s.Value(m))
		}
	}

	table := make(Table, len(grouped))
	for material, byMetric := range grouped {
		ms := make(MaterialStats, len(byMetric))
		for metric, values := range byMetric {
			ms[metric] = summarize(values)
		}
		table[material] = ms
	}
	return table
}

// summarize sorts values in place.
func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)
	return Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Median: median(values),
	}
}

// median expects sorted input; an even count averages the two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
