package chattemplate

import (
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Accumulator collects the text of one conversation render. The tracker
// reads its length to place generation spans.
type Accumulator struct {
	b strings.Builder
}

func (a *Accumulator) Write(p []byte) (int, error) {
	return a.b.Write(p)
}

func (a *Accumulator) WriteString(s string) (int, error) {
	return a.b.WriteString(s)
}

// Len returns the number of bytes written so far.
func (a *Accumulator) Len() int {
	return a.b.Len()
}

func (a *Accumulator) String() string {
	return a.b.String()
}

// Tracker records where generation blocks land in the rendered text.
//
// A Tracker is Inactive until Activate binds it to the accumulator of one
// render, and returns to Inactive on Deactivate. While Inactive, Observe
// passes block bodies through unrecorded.
type Tracker struct {
	mu     sync.Mutex
	active bool
	acc    *Accumulator
	spans  [][2]int
}

// NewTracker returns an inactive tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Activate starts recording against acc. It fails with ErrTrackerReuse if
// the tracker is already active.
func (t *Tracker) Activate(acc *Accumulator) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return ErrTrackerReuse
	}
	t.active = true
	t.acc = acc
	t.spans = nil
	return nil
}

// Deactivate stops recording. Recorded spans stay readable until the next
// Activate.
func (t *Tracker) Deactivate() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}

// Active reports whether the tracker is recording.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Observe writes the rendered body of a generation block to w. When
// active and w is the bound accumulator, the span of text the body
// occupies is recorded. Bodies captured elsewhere, such as inside a
// set block, pass through unrecorded.
func (t *Tracker) Observe(body string, w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || w != io.Writer(t.acc) {
		_, err := io.WriteString(w, body)
		return err
	}

	start := t.acc.Len()
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	t.spans = append(t.spans, [2]int{start, t.acc.Len()})
	return nil
}

// Spans returns the recorded spans as character offsets into the
// accumulated text.
func (t *Tracker) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spans) == 0 {
		return []Span{}
	}
	text := ""
	if t.acc != nil {
		text = t.acc.String()
	}
	out := make([]Span, len(t.spans))
	for i, s := range t.spans {
		out[i] = Span{Start: runeOffset(text, s[0]), End: runeOffset(text, s[1])}
	}
	return out
}

// runeOffset converts a byte offset into text to a character offset.
func runeOffset(text string, byteOff int) int {
	if byteOff > len(text) {
		byteOff = len(text)
	}
	return utf8.RuneCountInString(text[:byteOff])
}
