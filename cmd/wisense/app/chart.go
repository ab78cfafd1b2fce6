package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/roman-kulish/wisense/internal/stats"
	"github.com/roman-kulish/wisense/internal/wifi"
)

const (
	chartDPI      float64 = 72
	chartFontSize float64 = 14

	chartGroupWidth = 200
	chartPlotHeight = 420
	chartBarInset   = 24

	chartTop    = 60
	chartLeft   = 70
	chartBottom = 90
	chartRight  = 30

	chartTickStep = 10.0 // dB between horizontal guides
)

var errNoStatistics = errors.New("no statistics to render")

var (
	chartBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	chartGuide      = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	chartAxis       = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// metricColors follows the usual blue, orange, green plotting cycle.
var metricColors = map[wifi.Metric]string{
	wifi.MetricRSSI:  "#1f77b4",
	wifi.MetricNoise: "#ff7f0e",
	wifi.MetricSNR:   "#2ca02c",
}

// materialColors is shared by the terminal strip and the PNG chart.
var materialColors = map[wifi.Material]string{
	wifi.MaterialBaseline: "#9e9e9e",
	wifi.MaterialWood:     "#c8a165",
	wifi.MaterialPlastic:  "#64b5f6",
	wifi.MaterialGlass:    "#81c784",
	wifi.MaterialAluminum: "#b0bec5",
	wifi.MaterialCopper:   "#ff9800",
	wifi.MaterialBrass:    "#d4af37",
}

func hexColor(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{R: 0.5, G: 0.5, B: 0.5}
	}
	return c
}

// materialBackground is a pale tint of the material color.
func materialBackground(m wifi.Material) color.Color {
	white := colorful.Color{R: 1, G: 1, B: 1}
	return hexColor(materialColors[m]).BlendRgb(white, 0.8).Clamped()
}

type chartAnnotator struct {
	context *freetype.Context
	face    font.Face
}

func newChartAnnotator() (*chartAnnotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(chartDPI)
	context.SetFont(parsedFont)
	context.SetFontSize(chartFontSize)
	context.SetHinting(font.HintingFull)
	context.SetSrc(image.NewUniform(chartAxis))

	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    chartFontSize,
		DPI:     chartDPI,
		Hinting: font.HintingFull,
	})

	return &chartAnnotator{context: context, face: face}, nil
}

func (a *chartAnnotator) Close() error {
	return a.face.Close()
}

func (a *chartAnnotator) attach(img *image.RGBA) {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)
}

func (a *chartAnnotator) drawString(s string, x, y int) error {
	_, err := a.context.DrawString(s, freetype.Pt(x, y))
	return err
}

func (a *chartAnnotator) drawCentered(s string, x, y int) error {
	return a.drawString(s, x-font.MeasureString(a.face, s).Round()/2, y)
}

func (a *chartAnnotator) drawRight(s string, x, y int) error {
	return a.drawString(s, x-font.MeasureString(a.face, s).Round(), y)
}

func (a *chartAnnotator) lineHeight() int {
	m := a.face.Metrics()
	return (m.Ascent + m.Descent).Round()
}

// renderStatsChart draws grouped bars of the median of every metric per
// material, labelled with their values.
func renderStatsChart(table stats.Table, startedAt time.Time, total int) (*image.RGBA, error) {
	materials := table.Materials()
	if len(materials) == 0 {
		return nil, errNoStatistics
	}

	plotWidth := chartGroupWidth * len(materials)
	img := image.NewRGBA(image.Rect(0, 0, chartLeft+plotWidth+chartRight, chartTop+chartPlotHeight+chartBottom))
	draw.Draw(img, img.Bounds(), image.NewUniform(chartBackground), image.Point{}, draw.Src)

	area := image.Rect(chartLeft, chartTop, chartLeft+plotWidth, chartTop+chartPlotHeight)
	lo, hi := medianBounds(table, materials)
	yOf := func(v float64) int {
		return area.Max.Y - int(math.Round((v-lo)/(hi-lo)*float64(area.Dy())))
	}

	ann, err := newChartAnnotator()
	if err != nil {
		return nil, err
	}
	defer func() { _ = ann.Close() }()
	ann.attach(img)

	lh := ann.lineHeight()

	// horizontal guides
	for v := math.Ceil(lo/chartTickStep) * chartTickStep; v <= hi; v += chartTickStep {
		y := yOf(v)
		fill(img, image.Rect(area.Min.X, y, area.Max.X, y+1), chartGuide)
		if err = ann.drawRight(fmt.Sprintf("%.0f", v), area.Min.X-6, y+lh/3); err != nil {
			return nil, fmt.Errorf("drawing scale: %w", err)
		}
	}

	barWidth := (chartGroupWidth - 2*chartBarInset) / len(wifi.Metrics)
	for i, m := range materials {
		group := image.Rect(area.Min.X+i*chartGroupWidth, area.Min.Y, area.Min.X+(i+1)*chartGroupWidth, area.Max.Y)
		fill(img, group.Inset(4), materialBackground(m))

		for j, metric := range wifi.Metrics {
			v := table[m][metric].Median
			x := group.Min.X + chartBarInset + j*barWidth

			top, bottom := yOf(v), yOf(0)
			labelY := top - 4
			if top > bottom {
				top, bottom = bottom, top
				labelY = bottom + lh
			}
			fill(img, image.Rect(x+2, top, x+barWidth-2, max(bottom, top+1)), hexColor(metricColors[metric]))

			if err = ann.drawCentered(fmt.Sprintf("%.1f", v), x+barWidth/2, labelY); err != nil {
				return nil, fmt.Errorf("drawing value label: %w", err)
			}
		}

		count := table[m][wifi.MetricRSSI].Count
		name := fmt.Sprintf("%s (n=%s)", m, humanize.Comma(int64(count)))
		if err = ann.drawCentered(name, (group.Min.X+group.Max.X)/2, area.Max.Y+lh+6); err != nil {
			return nil, fmt.Errorf("drawing material label: %w", err)
		}
	}

	// zero line
	zero := yOf(0)
	fill(img, image.Rect(area.Min.X, zero, area.Max.X, zero+1), chartAxis)
	fill(img, image.Rect(area.Min.X-1, area.Min.Y, area.Min.X, area.Max.Y), chartAxis)

	title := fmt.Sprintf("Median signal per material, session %s, %s samples",
		startedAt.Format("2006-01-02 15:04:05"), humanize.Comma(int64(total)))
	if err = ann.drawString(title, chartLeft, chartTop/2+lh/2); err != nil {
		return nil, fmt.Errorf("drawing title: %w", err)
	}

	// legend
	x := chartLeft
	y := area.Max.Y + 2*lh + 24
	for _, metric := range wifi.Metrics {
		fill(img, image.Rect(x, y-lh+4, x+lh-4, y), hexColor(metricColors[metric]))
		label := fmt.Sprintf("%s (%s)", metricTitle(metric), metric.Unit())
		if err = ann.drawString(label, x+lh, y); err != nil {
			return nil, fmt.Errorf("drawing legend: %w", err)
		}
		x += lh + font.MeasureString(ann.face, label).Round() + 24
	}

	return img, nil
}

// medianBounds returns the value range of the chart, always including zero.
func medianBounds(table stats.Table, materials []wifi.Material) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, m := range materials {
		for _, metric := range wifi.Metrics {
			v := table[m][metric].Median
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo - valuePadding, hi + valuePadding
}

func metricTitle(m wifi.Metric) string {
	switch m {
	case wifi.MetricRSSI:
		return "RSSI"
	case wifi.MetricNoise:
		return "Noise"
	case wifi.MetricSNR:
		return "SNR"
	default:
		return m.String()
	}
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// writeStatsChart renders the chart and saves it as PNG at path.
func writeStatsChart(path string, table stats.Table, startedAt time.Time, total int) (err error) {
	img, err := renderStatsChart(table, startedAt, total)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing chart file: %w", cerr)
		}
	}()

	if err = png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding chart: %w", err)
	}
	return nil
}
