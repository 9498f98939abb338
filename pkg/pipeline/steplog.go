package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// StepLog records the steps of a pipeline run with their durations, nested
// in sections, together with named output values. A StepLog is not safe for
// concurrent use.
type StepLog struct {
	now     func() time.Time
	entries []*entry
	open    []int // indices of open sections, innermost last
	current int   // index of the running step, -1 when none
	values  []NamedValue
	notes   []NamedString
}

type entry struct {
	name       string
	depth      int
	section    bool
	start, end time.Time
	closed     bool
}

// NamedValue is a numeric output of a run.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NamedString is a textual output of a run, such as a failure reason.
type NamedString struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StepTiming is one line of the timing summary.
type StepTiming struct {
	Name    string  `json:"name"`
	Depth   int     `json:"depth"`
	Section bool    `json:"section,omitempty"`
	Seconds float64 `json:"seconds"`
}

// Summary is the serialisable content of a StepLog.
type Summary struct {
	Steps  []StepTiming  `json:"steps"`
	Total  float64       `json:"total"`
	Values []NamedValue  `json:"values,omitempty"`
	Notes  []NamedString `json:"notes,omitempty"`
}

// NewStepLog returns an empty log using the wall clock.
func NewStepLog() *StepLog {
	return newStepLogWithClock(time.Now)
}

func newStepLogWithClock(now func() time.Time) *StepLog {
	return &StepLog{now: now, current: -1}
}

// Step ends the running step of the current section, if any, and starts a
// new one.
func (l *StepLog) Step(name string) {
	t := l.now()
	l.closeCurrent(t)
	l.entries = append(l.entries, &entry{name: name, depth: len(l.open), start: t})
	l.current = len(l.entries) - 1
}

// BeginSection ends the running step and opens a section. Steps added until
// the matching EndSection are nested in it.
func (l *StepLog) BeginSection(name string) {
	t := l.now()
	l.closeCurrent(t)
	l.entries = append(l.entries, &entry{name: name, depth: len(l.open), section: true, start: t})
	l.open = append(l.open, len(l.entries)-1)
}

// EndSection closes the innermost section and its running step. It is a
// no-op when no section is open.
func (l *StepLog) EndSection() {
	if len(l.open) == 0 {
		return
	}
	t := l.now()
	l.closeCurrent(t)
	s := l.entries[l.open[len(l.open)-1]]
	s.end, s.closed = t, true
	l.open = l.open[:len(l.open)-1]
}

func (l *StepLog) closeCurrent(t time.Time) {
	if l.current < 0 {
		return
	}
	e := l.entries[l.current]
	if !e.closed {
		e.end, e.closed = t, true
	}
	l.current = -1
}

// Value records a numeric output.
func (l *StepLog) Value(name string, v float64) {
	l.values = append(l.values, NamedValue{Name: name, Value: v})
}

// Note records a textual output.
func (l *StepLog) Note(name, v string) {
	l.notes = append(l.notes, NamedString{Name: name, Value: v})
}

// Fail records the reason a stage gave up.
func (l *StepLog) Fail(msg string) {
	l.Note("fail", msg)
}

// Failure returns the last recorded failure reason, or "".
func (l *StepLog) Failure() string {
	for i := len(l.notes) - 1; i >= 0; i-- {
		if l.notes[i].Name == "fail" {
			return l.notes[i].Value
		}
	}
	return ""
}

// Finish closes the running step and every open section.
func (l *StepLog) Finish() {
	for len(l.open) > 0 {
		l.EndSection()
	}
	l.closeCurrent(l.now())
}

// Summary finishes the log and returns its content.
func (l *StepLog) Summary() Summary {
	l.Finish()
	var s Summary
	for _, e := range l.entries {
		s.Steps = append(s.Steps, StepTiming{
			Name:    e.name,
			Depth:   e.depth,
			Section: e.section,
			Seconds: e.end.Sub(e.start).Seconds(),
		})
	}
	if len(l.entries) > 0 {
		last := l.entries[0].end
		for _, e := range l.entries {
			if e.end.After(last) {
				last = e.end
			}
		}
		s.Total = last.Sub(l.entries[0].start).Seconds()
	}
	s.Values = append(s.Values, l.values...)
	s.Notes = append(s.Notes, l.notes...)
	return s
}

// Report finishes the log and writes its summary, see Summary.Report.
func (l *StepLog) Report(w io.Writer, maxDepth int) error {
	return l.Summary().Report(w, maxDepth)
}

// Report writes the timing summary down to maxDepth, then the output values.
// A negative maxDepth skips the timings.
func (s Summary) Report(w io.Writer, maxDepth int) error {
	var b strings.Builder
	if maxDepth >= 0 {
		b.WriteString("TIMING SUMMARY\n")
		for _, st := range s.Steps {
			if st.Depth > maxDepth {
				continue
			}
			indent := strings.Repeat(" ", 4*st.Depth)
			if st.Section {
				fmt.Fprintf(&b, "%s%.3f\t====>  %s\n", indent, st.Seconds, st.Name)
			} else {
				fmt.Fprintf(&b, "%s%.3f\t%s\n", indent, st.Seconds, st.Name)
			}
		}
		fmt.Fprintf(&b, "%.3f\tTOTAL\n", s.Total)
	}
	b.WriteString("OUTPUT VALUES\n")
	for _, v := range s.Values {
		fmt.Fprintf(&b, "%g \t%s\n", v.Value, v.Name)
	}
	for _, v := range s.Notes {
		fmt.Fprintf(&b, "%s \t%s\n", v.Value, v.Name)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
