package parser

import "strings"

// nameSeparator joins the segments of a qualified name.
const nameSeparator = "::"

// nameStack tracks the qualified name of the scope a transformer is currently inside.
// It is owned by a single transformer and starts with the arguments of the root directive.
type nameStack struct {
	segments []string
}

func newNameStack(seed []string) *nameStack {
	return &nameStack{
		segments: append([]string(nil), seed...),
	}
}

func (s *nameStack) push(segment string) {
	s.segments = append(s.segments, segment)
}

// pop removes the innermost segment. Popping an empty stack does nothing.
func (s *nameStack) pop() {
	if len(s.segments) == 0 {
		return
	}
	s.segments = s.segments[:len(s.segments)-1]
}

// current returns the qualified name of the innermost scope.
func (s *nameStack) current() string {
	return strings.Join(s.segments, nameSeparator)
}

func (s *nameStack) depth() int {
	return len(s.segments)
}
