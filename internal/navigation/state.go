package navigation

import (
	"fmt"
	"time"

	"github.com/roman-kulish/wisense/internal/rolling"
)

const (
	// MinSpan is the narrowest visible range
	MinSpan = 10 * time.Second

	ZoomInFactor  = 0.8
	ZoomOutFactor = 1.25

	// WheelFactor is the rescale step of pointer-anchored zoom
	WheelFactor = 1.2

	// PanFraction is the share of the visible span moved by one pan step
	PanFraction = 0.1
)

const (
	AutoFollow Mode = iota
	Manual
)

// Mode is the navigation state tag.
type Mode int

func (m Mode) String() string {
	switch m {
	case AutoFollow:
		return "auto-follow"
	case Manual:
		return "manual"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const (
	PanLeft Intent = iota
	PanRight
	ZoomIn
	ZoomOut
	JumpToLive
)

// Intent is a navigation input independent of its key binding.
type Intent int

// Range is a visible time range.
type Range struct {
	Start time.Time
	End   time.Time
}

// Span returns End - Start.
func (r Range) Span() time.Duration {
	return r.End.Sub(r.Start)
}

// IsZero reports whether the range is unset.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// State maps navigation inputs and the store extent onto a visible range.
//
// In AutoFollow the range always ends at the newest sample and only the span
// is adjustable. Any pan, drag or off-edge zoom switches to Manual, where the
// requested range is kept and re-clamped against the current extent.
// State is not safe for concurrent use; it belongs to the presentation loop.
type State struct {
	mode        Mode
	span        time.Duration
	initialSpan time.Duration
	maxSpan     time.Duration
	manual      Range
}

// New creates a State in AutoFollow with the given initial span. maxSpan is
// normally the retention window.
func New(initialSpan, maxSpan time.Duration) (*State, error) {
	if maxSpan < MinSpan {
		return nil, fmt.Errorf("invalid maximum span: %s, must be at least %s", maxSpan, MinSpan)
	}
	if initialSpan < MinSpan || initialSpan > maxSpan {
		return nil, fmt.Errorf("invalid view span: %s, must be between %s and %s", initialSpan, MinSpan, maxSpan)
	}
	return &State{
		mode:        AutoFollow,
		span:        initialSpan,
		initialSpan: initialSpan,
		maxSpan:     maxSpan,
	}, nil
}

// Mode returns the current state tag.
func (s *State) Mode() Mode {
	return s.mode
}

// Span returns the requested view span.
func (s *State) Span() time.Duration {
	return s.span
}

// Visible returns the range to render for the given extent. An empty extent
// yields a zero Range.
func (s *State) Visible(ext rolling.Extent) Range {
	if isEmpty(ext) {
		return Range{}
	}
	if s.mode == AutoFollow {
		return s.fit(ext.Newest.Add(-s.span), s.span, ext)
	}
	return s.fit(s.manual.Start, s.manual.Span(), ext)
}

// Apply dispatches a discrete navigation intent.
func (s *State) Apply(intent Intent, ext rolling.Extent) Range {
	switch intent {
	case PanLeft:
		return s.Pan(-s.panStep(ext), ext)
	case PanRight:
		return s.Pan(s.panStep(ext), ext)
	case ZoomIn:
		return s.Zoom(ZoomInFactor, ext)
	case ZoomOut:
		return s.Zoom(ZoomOutFactor, ext)
	case JumpToLive:
		return s.JumpToLive(ext)
	default:
		return s.Visible(ext)
	}
}

// Pan shifts the visible range by delta. Panning right while the range
// already ends at the newest sample returns to AutoFollow.
func (s *State) Pan(delta time.Duration, ext rolling.Extent) Range {
	if isEmpty(ext) || delta == 0 {
		return s.Visible(ext)
	}

	cur := s.Visible(ext)
	if delta > 0 && !cur.End.Before(ext.Newest) {
		return s.JumpToLive(ext)
	}

	s.mode = Manual
	s.manual = s.fit(cur.Start.Add(delta), cur.Span(), ext)
	return s.manual
}

// Zoom rescales the span by factor. In AutoFollow the end stays pinned to
// the newest sample; in Manual the range is rescaled around its center.
func (s *State) Zoom(factor float64, ext rolling.Extent) Range {
	if s.mode == AutoFollow || isEmpty(ext) {
		s.span = s.clampSpan(scale(s.liveSpan(ext), factor))
		return s.Visible(ext)
	}

	cur := s.Visible(ext)
	return s.ZoomAt(factor, cur.Start.Add(cur.Span()/2), ext)
}

// ZoomAt rescales the span by factor keeping anchor at the same relative
// position inside the range. An anchor at the live edge keeps AutoFollow;
// any other anchor switches to Manual.
func (s *State) ZoomAt(factor float64, anchor time.Time, ext rolling.Extent) Range {
	if isEmpty(ext) || (s.mode == AutoFollow && !anchor.Before(ext.Newest)) {
		s.span = s.clampSpan(scale(s.liveSpan(ext), factor))
		return s.Visible(ext)
	}

	cur := s.Visible(ext)
	span := s.clampSpan(scale(cur.Span(), factor))

	ratio := 0.5
	if cur.Span() > 0 {
		ratio = float64(anchor.Sub(cur.Start)) / float64(cur.Span())
		ratio = min(1, max(0, ratio))
	}
	start := anchor.Add(-time.Duration(float64(span) * ratio))

	s.mode = Manual
	s.span = span
	s.manual = s.fit(start, span, ext)
	return s.manual
}

// liveSpan is the span a zoom in AutoFollow starts from. A requested span
// wider than the data is shortened to what is actually shown.
func (s *State) liveSpan(ext rolling.Extent) time.Duration {
	if isEmpty(ext) {
		return s.span
	}
	return min(s.span, s.Visible(ext).Span())
}

// Select fixes the visible range to explicit bounds, as produced by a drag.
func (s *State) Select(start, end time.Time, ext rolling.Extent) Range {
	if isEmpty(ext) {
		return Range{}
	}
	if end.Before(start) {
		start, end = end, start
	}

	s.mode = Manual
	s.span = s.clampSpan(end.Sub(start))
	s.manual = s.fit(start, s.span, ext)
	return s.manual
}

// JumpToLive returns to AutoFollow keeping the current span.
func (s *State) JumpToLive(ext rolling.Extent) Range {
	s.mode = AutoFollow
	s.manual = Range{}
	return s.Visible(ext)
}

// Reset returns to AutoFollow with the initial span.
func (s *State) Reset() {
	s.mode = AutoFollow
	s.span = s.initialSpan
	s.manual = Range{}
}

func (s *State) panStep(ext rolling.Extent) time.Duration {
	return scale(s.Visible(ext).Span(), PanFraction)
}

// fit clamps a range starting at start with the given span into ext. The
// span is bounded to [MinSpan, maxSpan] and to the extent itself; an extent
// shorter than MinSpan yields a MinSpan range pinned to the newest sample.
func (s *State) fit(start time.Time, span time.Duration, ext rolling.Extent) Range {
	span = s.clampSpan(span)
	if avail := ext.Duration(); span >= avail {
		span = max(avail, MinSpan)
		return Range{Start: ext.Newest.Add(-span), End: ext.Newest}
	}

	if start.Before(ext.Oldest) {
		start = ext.Oldest
	}
	end := start.Add(span)
	if end.After(ext.Newest) {
		end = ext.Newest
		start = end.Add(-span)
	}
	return Range{Start: start, End: end}
}

func (s *State) clampSpan(span time.Duration) time.Duration {
	return min(max(span, MinSpan), s.maxSpan)
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

func isEmpty(ext rolling.Extent) bool {
	return ext.Newest.IsZero()
}
