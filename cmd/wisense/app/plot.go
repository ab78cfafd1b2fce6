package app

import (
	"math"
	"time"

	"github.com/roman-kulish/wisense/internal/navigation"
	"github.com/roman-kulish/wisense/internal/rolling"
	"github.com/roman-kulish/wisense/internal/wifi"
)

const (
	plotScale    = 100.0
	valuePadding = 5.0 // dB above and below the visible extremes
)

// frame is the visible range resampled to a fixed number of plot columns.
type frame struct {
	Range     navigation.Range
	Series    [][]float64 // one per wifi.Metrics, scaled to [0, plotScale]
	Lo, Hi    float64     // dB values at the bottom and top of the plot
	Materials []wifi.Material
	Markers   []bool // a material transition falls into the column
	Samples   int
}

// buildFrame averages samples falling into the same column. Empty columns
// repeat the previous value so every series stays continuous.
func buildFrame(samples []wifi.Sample, transitions []rolling.Transition, r navigation.Range, columns int) frame {
	f := frame{
		Range:     r,
		Series:    make([][]float64, len(wifi.Metrics)),
		Materials: make([]wifi.Material, max(columns, 0)),
		Markers:   make([]bool, max(columns, 0)),
		Samples:   len(samples),
	}
	for i := range f.Series {
		f.Series[i] = make([]float64, max(columns, 0))
	}
	if columns <= 0 || r.Span() <= 0 || len(samples) == 0 {
		return f
	}

	sums := make([][]float64, len(wifi.Metrics))
	for i := range sums {
		sums[i] = make([]float64, columns)
	}
	counts := make([]int, columns)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		col := columnOf(s.Timestamp, r, columns)
		counts[col]++
		for i, m := range wifi.Metrics {
			v := s.Value(m)
			sums[i][col] += v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		f.Materials[col] = s.Material
	}
	for _, t := range transitions {
		if !t.Timestamp.Before(r.Start) && !t.Timestamp.After(r.End) {
			f.Markers[columnOf(t.Timestamp, r, columns)] = true
		}
	}

	f.Lo, f.Hi = lo-valuePadding, hi+valuePadding

	first := -1
	for col := range counts {
		if counts[col] > 0 {
			first = col
			break
		}
	}

	for i := range wifi.Metrics {
		series := f.Series[i]
		last := sums[i][first] / float64(counts[first])
		for col := range series {
			if counts[col] > 0 {
				last = sums[i][col] / float64(counts[col])
			}
			series[col] = (last - f.Lo) / (f.Hi - f.Lo) * plotScale
		}
	}

	for col := first + 1; col < columns; col++ {
		if f.Materials[col] == "" {
			f.Materials[col] = f.Materials[col-1]
		}
	}

	return f
}

// columnOf maps ts into [0, columns).
func columnOf(ts time.Time, r navigation.Range, columns int) int {
	col := int(float64(ts.Sub(r.Start)) / float64(r.Span()) * float64(columns))
	return min(max(col, 0), columns-1)
}

// timeAt returns the start of the column's time slice.
func timeAt(col int, r navigation.Range, columns int) time.Time {
	if columns <= 0 {
		return r.Start
	}
	col = min(max(col, 0), columns)
	return r.Start.Add(time.Duration(float64(r.Span()) * float64(col) / float64(columns)))
}
