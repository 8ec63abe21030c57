package flame

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The functions below are written exactly the way the instrumenter rewrites
// them, so the span trees they record are the ones instrumented programs produce.

// package inner, `//flame` on the package clause, `//flame` on b, `//noflame` on C
func innerA() {
	defer StartGuard("inner::a").End()
}

func innerB() {
	defer StartGuard("b").End()
	innerA()
}

func innerC() {
	innerB()
}

// `//flame "top"` on a, `//flame "lower"` on Lower.a, `//flame` on b, `//noflame` on c
type lower struct{}

func (l lower) a() {
	defer StartGuard("lower::a").End()
}

func topA() {
	defer StartGuard("top::a").End()
	l := lower{}
	l.a()
}

func topB() {
	defer StartGuard("b").End()
	topA()
}

func topC() {
	topB()
}

// explicit discipline
func explicitValue() int {
	flameGuard := StartGuard("explicit")
	flameResult0 := func() int {
		return innerValue() + 1
	}()
	flameGuard.End()
	return flameResult0
}

func innerValue() int {
	defer StartGuard("inner").End()
	return 41
}

func TestNestedModuleScenario(t *testing.T) {
	Clear()
	innerC()

	spans := Spans()
	require.Len(t, spans, 1)
	root := spans[0]
	assert.Equal(t, "b", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "inner::a", root.Children[0].Name)
	assert.Empty(t, root.Children[0].Children)
}

func TestPrefixScenario(t *testing.T) {
	Clear()
	topC()

	spans := Spans()
	require.Len(t, spans, 1)
	root := spans[0]
	assert.Equal(t, "b", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "top::a", root.Children[0].Name)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "lower::a", root.Children[0].Children[0].Name)
}

func TestExplicitDisciplineEndsBeforeReturn(t *testing.T) {
	Clear()
	assert.Equal(t, 42, explicitValue())

	spans := Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "explicit", spans[0].Name)
	require.Len(t, spans[0].Children, 1)
	assert.Equal(t, "inner", spans[0].Children[0].Name)
	assert.False(t, spans[0].End.Before(spans[0].Children[0].End))
}

func TestGuardEndIsIdempotent(t *testing.T) {
	Clear()
	g := StartGuard("once")
	g.End()
	g.End()

	assert.Len(t, Spans(), 1)

	var nilGuard *Guard
	assert.NotPanics(t, nilGuard.End)
}

func TestEndingParentClosesOpenChildren(t *testing.T) {
	Clear()
	parent := StartGuard("parent")
	child := StartGuard("child")
	parent.End()
	child.End()

	spans := Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "parent", spans[0].Name)
	require.Len(t, spans[0].Children, 1)
	assert.Equal(t, "child", spans[0].Children[0].Name)
	assert.GreaterOrEqual(t, spans[0].Duration(), spans[0].Children[0].Duration())
}

func TestSpansReturnsCopy(t *testing.T) {
	Clear()
	g := StartGuard("outer")
	StartGuard("inner").End()
	g.End()

	spans := Spans()
	spans[0].Children[0].Name = "changed"
	assert.Equal(t, "inner", Spans()[0].Children[0].Name)
}

func TestWriteTree(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spans := []Span{{
		Name:  "b",
		Start: start,
		End:   start.Add(3 * time.Millisecond),
		Children: []Span{{
			Name:  "inner::a",
			Start: start,
			End:   start.Add(time.Millisecond),
		}},
	}}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteTree(buf, spans))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"b 3ms", "  inner::a 1ms"}, lines)
}

type recordingHook struct {
	started []string
	ended   []string
}

func (h *recordingHook) Start(name string) func() {
	h.started = append(h.started, name)
	return func() { h.ended = append(h.ended, name) }
}

func TestHook(t *testing.T) {
	Clear()
	h := &recordingHook{}
	SetHook(h)
	defer SetHook(nil)

	topC()

	assert.Equal(t, []string{"b", "top::a", "lower::a"}, h.started)
	assert.Equal(t, []string{"lower::a", "top::a", "b"}, h.ended)
}
