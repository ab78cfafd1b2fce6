package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"
	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/wisense/internal/navigation"
	"github.com/roman-kulish/wisense/internal/rolling"
	"github.com/roman-kulish/wisense/internal/stats"
	"github.com/roman-kulish/wisense/internal/wifi"
)

const (
	overlayRefresh = time.Second

	headerLines = 1
	footerLines = 2 // strip and time labels inside the plot border
	statusLines = 3
)

var (
	accentColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	accentFg    = styles.NewStyle().Foreground(accentColor)
	borderFg    = styles.NewStyle().Foreground(borderColor)
	errorFg     = styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
	titleStyle  = styles.NewStyle().Bold(true)
	plotStyle   = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			Foreground(borderColor).
			BorderForeground(borderColor)
	tableStyle = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
)

type viewMode int

const (
	liveView viewMode = iota
	statsView
)

type refreshTickMsg time.Time

type overlayTickMsg time.Time

type savedMsg struct {
	path string
	err  error
}

func doRefreshTick(d time.Duration) tui.Cmd {
	return tui.Every(d, func(t time.Time) tui.Msg {
		return refreshTickMsg(t)
	})
}

func doOverlayTick() tui.Cmd {
	return tui.Every(overlayRefresh, func(t time.Time) tui.Msg {
		return overlayTickMsg(t)
	})
}

type model struct {
	ctx     context.Context
	session *Session
	nav     *navigation.State
	help    help.Model
	plot    *plot.Canvas
	refresh time.Duration

	width, height         int
	plotWidth, plotHeight int

	view    viewMode
	table   stats.Table
	overlay stats.Table
	frame   frame
	status  string
	err     error

	dragging bool
	dragX    int
}

func newModel(ctx context.Context, session *Session, config *Config) (*model, error) {
	const (
		defaultWidth  = 80
		defaultHeight = 20
	)

	nav, err := navigation.New(config.Sampling.ViewSpan.Duration(), session.Store().Window())
	if err != nil {
		return nil, fmt.Errorf("creating navigation: %w", err)
	}

	m := &model{
		ctx:     ctx,
		session: session,
		nav:     nav,
		help:    help.New(),
		refresh: config.UI.Refresh.Duration(),
	}
	m.resizePlot(defaultWidth-2, defaultHeight)
	return m, nil
}

func (m *model) Init() tui.Cmd {
	return tui.Batch(doRefreshTick(m.refresh), doOverlayTick())
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case refreshTickMsg:
		m.updatePlot()
		return m, doRefreshTick(m.refresh)
	case overlayTickMsg:
		m.overlay = stats.Compute(m.session.Store().Snapshot())
		return m, doOverlayTick()
	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = "saved " + msg.path
		}
		return m, nil
	case tui.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil
	case tui.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tui.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tui.KeyMsg) (tui.Model, tui.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tui.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, keys.Save):
		return m, m.save()
	case key.Matches(msg, keys.Stats):
		if m.view == statsView {
			m.view = liveView
			return m, nil
		}
		m.table = stats.Compute(m.session.Store().Snapshot())
		m.view = statsView
		return m, nil
	case key.Matches(msg, keys.Clear):
		if m.view == statsView {
			m.view = liveView
		} else {
			m.session.Clear()
			m.status = "data cleared"
		}
		m.nav.Reset()
		m.updatePlot()
		return m, nil
	}

	if m.view != liveView {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Material):
		n := int(msg.String()[0] - '0')
		if material, ok := wifi.MaterialBySelector(n); ok {
			if err := m.session.SelectMaterial(material); err != nil {
				m.err = err
			}
		}
	case key.Matches(msg, keys.Band):
		m.status = fmt.Sprintf("band %s GHz", m.session.ToggleBand())
	case key.Matches(msg, keys.Left):
		m.navigate(navigation.PanLeft)
	case key.Matches(msg, keys.Right):
		m.navigate(navigation.PanRight)
	case key.Matches(msg, keys.ZoomIn):
		m.navigate(navigation.ZoomIn)
	case key.Matches(msg, keys.ZoomOut):
		m.navigate(navigation.ZoomOut)
	case key.Matches(msg, keys.Live):
		m.navigate(navigation.JumpToLive)
	}
	return m, nil
}

func (m *model) navigate(intent navigation.Intent) {
	ext, ok := m.session.Store().TimeExtent()
	if !ok {
		return
	}
	m.nav.Apply(intent, ext)
	m.updatePlot()
}

func (m *model) handleMouse(msg tui.MouseMsg) {
	if m.view != liveView || m.frame.Range.IsZero() {
		return
	}
	ext, ok := m.session.Store().TimeExtent()
	if !ok {
		return
	}

	col, inside := m.plotColumn(msg.X, msg.Y)

	switch {
	case msg.Button == tui.MouseButtonWheelUp && inside:
		m.nav.ZoomAt(1/navigation.WheelFactor, m.wheelAnchor(col, ext), ext)
	case msg.Button == tui.MouseButtonWheelDown && inside:
		m.nav.ZoomAt(navigation.WheelFactor, m.wheelAnchor(col, ext), ext)
	case msg.Action == tui.MouseActionPress && msg.Button == tui.MouseButtonLeft && inside:
		m.dragging, m.dragX = true, col
		return
	case msg.Action == tui.MouseActionRelease && m.dragging:
		m.dragging = false
		from, to := min(m.dragX, col), max(m.dragX, col)
		if to == from {
			return
		}
		// both edges are inclusive columns
		m.nav.Select(timeAt(from, m.frame.Range, m.plotWidth), timeAt(to+1, m.frame.Range, m.plotWidth), ext)
	default:
		return
	}
	m.updatePlot()
}

// plotColumn maps terminal coordinates to a plot column.
func (m *model) plotColumn(x, y int) (int, bool) {
	col := x - 1
	top := headerLines + 1
	inside := col >= 0 && col < m.plotWidth && y >= top && y < top+m.plotHeight+footerLines
	return min(max(col, 0), m.plotWidth-1), inside
}

// wheelAnchor is the zoom anchor for a wheel event over col. While following
// live data the last column stands for the newest sample, which may be newer
// than the rendered frame.
func (m *model) wheelAnchor(col int, ext rolling.Extent) time.Time {
	if col >= m.plotWidth-1 && m.nav.Mode() == navigation.AutoFollow {
		return ext.Newest
	}
	return m.columnTime(col)
}

// columnTime returns the instant under plot column col. The last column
// maps to the end of the range.
func (m *model) columnTime(col int) time.Time {
	if col >= m.plotWidth-1 {
		return m.frame.Range.End
	}
	start := timeAt(col, m.frame.Range, m.plotWidth)
	end := timeAt(col+1, m.frame.Range, m.plotWidth)
	return start.Add(end.Sub(start) / 2)
}

func (m *model) save() tui.Cmd {
	ctx := m.ctx
	return func() tui.Msg {
		path, err := m.session.Save(context.WithoutCancel(ctx))
		return savedMsg{path: path, err: err}
	}
}

func (m *model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	helpLines := 1
	if m.help.ShowAll {
		for _, column := range keys.FullHelp() {
			helpLines = max(helpLines, len(column))
		}
	}
	plotHeight := m.height - headerLines - 2 - footerLines - statusLines - helpLines
	m.resizePlot(max(1, m.width-2), max(1, plotHeight))
	m.updatePlot()
}

func (m *model) resizePlot(w, h int) {
	p := plot.NewCanvas(w, h)
	p.NumDataPoints = w
	p.ShowAxis = false
	p.LineColors = lineColors()
	m.plot = &p
	m.plotWidth, m.plotHeight = w, h
}

// lineColors returns the RSSI, noise and SNR line colors.
func lineColors() []plot.Color {
	if styles.DefaultRenderer().HasDarkBackground() {
		return []plot.Color{plot.Red, plot.DimGray, plot.LightGray}
	}
	return []plot.Color{plot.Red, plot.LightGray, plot.Black}
}

func (m *model) updatePlot() {
	store := m.session.Store()
	ext, ok := store.TimeExtent()
	if !ok {
		m.frame = frame{}
		return
	}

	r := m.nav.Visible(ext)
	m.frame = buildFrame(store.SnapshotRange(r.Start, r.End), store.TransitionsRange(r.Start, r.End), r, m.plotWidth)
	if m.frame.Samples > 0 {
		m.plot.Fill(m.frame.Series)
	}
}

func (m *model) View() string {
	if m.view == statsView {
		return styles.JoinVertical(styles.Left, m.statsView(), m.footer())
	}

	chart := ""
	if m.frame.Samples > 0 {
		chart = m.plot.String()
	}
	if chart == "" {
		chart = emptyPlot(m.plotWidth, m.plotHeight)
	}

	boxed := plotStyle.Render(styles.JoinVertical(styles.Left, chart, m.materialStrip(), m.timeLabels()))
	return styles.JoinVertical(styles.Left, m.header(), boxed, m.statusBox(), m.footer())
}

func (m *model) header() string {
	labels := m.session.Store().Labels()
	mode := accentFg.Render("LIVE")
	if m.nav.Mode() == navigation.Manual {
		mode = borderFg.Render("MANUAL")
	}

	legend := fmt.Sprintf("RSSI/Noise/SNR %.0f..%.0f dB", m.frame.Lo, m.frame.Hi)
	if m.frame.Samples == 0 {
		legend = "waiting for samples"
	}

	return fmt.Sprintf("%s  %s  %s %s GHz  span %s  %s",
		titleStyle.Render("wisense"),
		mode,
		accentFg.Render(labels.Material.String()),
		labels.Band,
		m.nav.Span().Round(time.Second),
		borderFg.Render(legend),
	)
}

// materialStrip colors every column by the material of its samples and
// marks transitions.
func (m *model) materialStrip() string {
	var sb strings.Builder
	for col := 0; col < m.plotWidth; col++ {
		var material wifi.Material
		var marked bool
		if col < len(m.frame.Materials) {
			material, marked = m.frame.Materials[col], m.frame.Markers[col]
		}

		switch {
		case material == "":
			sb.WriteRune(' ')
		case marked:
			sb.WriteString(styles.NewStyle().Foreground(styles.Color(materialColors[material])).Render("┃"))
		default:
			sb.WriteString(styles.NewStyle().Foreground(styles.Color(materialColors[material])).Render("▀"))
		}
	}
	return sb.String()
}

func (m *model) timeLabels() string {
	r := m.frame.Range
	if r.IsZero() {
		return strings.Repeat(" ", m.plotWidth)
	}

	left := r.Start.Format("15:04:05")
	right := r.End.Format("15:04:05")
	gap := m.plotWidth - len(left) - len(right)
	if gap < 1 {
		return right
	}
	return borderFg.Render(left) + strings.Repeat(" ", gap) + borderFg.Render(right)
}

func (m *model) statusBox() string {
	labels := m.session.Store().Labels()
	auto := "ON"
	if m.nav.Mode() == navigation.Manual {
		auto = "OFF"
	}

	lines := []string{
		fmt.Sprintf("Current material: %s (%s GHz)   Auto-scroll: %s (home=live, arrows=navigate)", labels.Material, labels.Band, auto),
	}

	var summary []string
	for _, material := range m.overlay.Materials() {
		snr := m.overlay[material][wifi.MetricSNR]
		summary = append(summary, fmt.Sprintf("%s snr mean=%.1f med=%.1f", material, snr.Mean, snr.Median))
	}
	lines = append(lines, borderFg.Render(strings.Join(summary, "  ")))

	if m.err != nil {
		lines = append(lines, errorFg.Render("ERROR: "+m.err.Error()))
	} else {
		lines = append(lines, m.counters())
	}

	return strings.Join(lines, "\n")
}

func (m *model) counters() string {
	counters := m.session.AcquisitionStats()
	line := fmt.Sprintf("%s samples, %s parse errors, %s source errors, %s skipped, journal %s, started %s",
		humanize.Comma(int64(counters.Accepted)),
		humanize.Comma(int64(counters.ParseFailures)),
		humanize.Comma(int64(counters.SourceFailures)),
		humanize.Comma(int64(counters.Skipped)),
		humanize.Bytes(uint64(m.session.JournalSize())),
		humanize.Time(m.session.StartedAt),
	)
	if m.status != "" {
		line += "  " + accentFg.Render(m.status)
	}
	return borderFg.Render(line)
}

func (m *model) statsView() string {
	materials := m.table.Materials()
	if len(materials) == 0 {
		return tableStyle.Render("no samples in the rolling window")
	}

	rows := []string{
		titleStyle.Render(fmt.Sprintf("%-10s %7s %17s %17s %17s", "material", "count", "rssi mean/med", "noise mean/med", "snr mean/med")),
	}
	for _, material := range materials {
		row := m.table[material]
		cells := []string{fmt.Sprintf("%-10s %7s", material, humanize.Comma(int64(row[wifi.MetricRSSI].Count)))}
		for _, metric := range wifi.Metrics {
			cells = append(cells, fmt.Sprintf("%8.1f/%-8.1f", row[metric].Mean, row[metric].Median))
		}
		rows = append(rows, styles.NewStyle().Foreground(styles.Color(materialColors[material])).Render(strings.Join(cells, " ")))
	}

	title := accentFg.Render("Statistics of the rolling window (s=back, c=back and reset view)")
	return styles.JoinVertical(styles.Left, title, tableStyle.Render(strings.Join(rows, "\n")))
}

func (m *model) footer() string {
	return m.help.View(keys)
}

func emptyPlot(w, h int) string {
	if w < 1 || h < 1 {
		return ""
	}
	line := strings.Repeat(" ", w)
	lines := make([]string, h)
	for i := range lines {
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// runUI blocks until the user quits or ctx is cancelled.
func runUI(ctx context.Context, session *Session, config *Config) error {
	m, err := newModel(ctx, session, config)
	if err != nil {
		return err
	}

	opts := []tui.ProgramOption{tui.WithContext(ctx), tui.WithInputTTY(), tui.WithMouseCellMotion()}
	if config.UI.AltScreen {
		opts = append(opts, tui.WithAltScreen())
	}

	if _, err = tui.NewProgram(m, opts...).Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}
