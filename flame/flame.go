// Package flame records nested timing spans opened by guards that the
// go-easy-profiling instrumentation inserts into function bodies.
//
// Instrumented code calls StartGuard at the top of a function and ends the
// guard when the function returns, either with a defer or explicitly:
//
//	func work() {
//		defer flame.StartGuard("pkg::work").End()
//		...
//	}
//
// Spans are recorded by a process wide recorder that tracks a single logical
// thread of nested guards. Guards opened concurrently from several goroutines
// will nest under whichever guard happens to be open.
package flame

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

// Span is a completed guard lifetime along with the spans opened while it was active.
type Span struct {
	Name     string
	Start    time.Time
	End      time.Time
	Children []Span
}

// Duration returns the time between the start and the end of the span.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Hook is notified of every guard. The returned function is called when the guard ends.
type Hook interface {
	Start(name string) (end func())
}

// Guard marks an open span. Its End method closes the span.
type Guard struct {
	frame *frame
	end   func()
	once  sync.Once
}

type frame struct {
	span Span
}

type recorder struct {
	mu    sync.Mutex
	open  []*frame
	roots []Span
	hook  Hook
}

var global = &recorder{}

// StartGuard opens a span with the given name and returns the guard that closes it.
func StartGuard(name string) *Guard {
	return global.start(name)
}

// End closes the span opened by the guard. Any span opened after this one that is
// still open is closed with it. Calling End more than once has no effect.
func (g *Guard) End() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		global.end(g.frame)
		if g.end != nil {
			g.end()
		}
	})
}

// Spans returns a copy of all completed root spans in the order they ended.
func Spans() []Span {
	global.mu.Lock()
	defer global.mu.Unlock()
	return cloneSpans(global.roots)
}

// Clear discards all recorded spans. Guards that are still open stay open.
func Clear() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.roots = nil
}

// WriteTree writes spans as an indented tree, one span per line with its duration.
func WriteTree(w io.Writer, spans []Span) error {
	return writeTree(w, spans, 0)
}

func writeTree(w io.Writer, spans []Span, depth int) error {
	for _, s := range spans {
		if _, err := fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), s.Name, s.Duration()); err != nil {
			return err
		}
		if err := writeTree(w, s.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// SetHook installs a hook that mirrors every guard started after this call.
// Passing nil removes the hook.
func SetHook(h Hook) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.hook = h
}

func (r *recorder) start(name string) *Guard {
	r.mu.Lock()
	f := &frame{span: Span{Name: name, Start: time.Now()}}
	r.open = append(r.open, f)
	hook := r.hook
	r.mu.Unlock()

	g := &Guard{frame: f}
	if hook != nil {
		g.end = hook.Start(name)
	}
	return g
}

func (r *recorder) end(f *frame) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.Index(r.open, f)
	if idx < 0 {
		return
	}

	// close everything opened after f first so that each span lands in its parent
	for i := len(r.open) - 1; i >= idx; i-- {
		closing := r.open[i]
		closing.span.End = now
		r.open = r.open[:i]

		if i == 0 {
			r.roots = append(r.roots, closing.span)
			continue
		}
		parent := r.open[i-1]
		parent.span.Children = append(parent.span.Children, closing.span)
	}
}

func cloneSpans(spans []Span) []Span {
	if spans == nil {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = s
		out[i].Children = cloneSpans(s.Children)
	}
	return out
}
