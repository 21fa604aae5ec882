package domain

// DefaultWindowSize is the number of trailing daily counts the trend model
// looks at.
const DefaultWindowSize = 7

// SeriesWindow is a fixed-size rolling view over a disease's historical
// counts. Pushing beyond capacity evicts the oldest value.
type SeriesWindow struct {
	size   int
	counts []int
}

// NewSeriesWindow creates an empty window. Sizes below 2 are raised to 2,
// the minimum the trend model can work with.
func NewSeriesWindow(size int) *SeriesWindow {
	if size < 2 {
		size = 2
	}
	return &SeriesWindow{size: size}
}

// WindowFromCounts builds a window holding the most recent `size` values of
// counts, preserving chronological order.
func WindowFromCounts(counts []int, size int) *SeriesWindow {
	w := NewSeriesWindow(size)
	for _, c := range counts {
		w.Push(c)
	}
	return w
}

// Push appends a count, evicting the oldest once the window is full.
func (w *SeriesWindow) Push(count int) {
	if len(w.counts) == w.size {
		copy(w.counts, w.counts[1:])
		w.counts[len(w.counts)-1] = count
		return
	}
	w.counts = append(w.counts, count)
}

// Values returns the windowed counts oldest-first. The returned slice is a
// copy; mutating it does not affect the window.
func (w *SeriesWindow) Values() []int {
	out := make([]int, len(w.counts))
	copy(out, w.counts)
	return out
}

// Len reports how many counts the window currently holds.
func (w *SeriesWindow) Len() int { return len(w.counts) }

// Size reports the window capacity.
func (w *SeriesWindow) Size() int { return w.size }

// Last returns the most recent count, or 0 for an empty window.
func (w *SeriesWindow) Last() int {
	if len(w.counts) == 0 {
		return 0
	}
	return w.counts[len(w.counts)-1]
}
