package parser

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"

	"github.com/dave/dst"
)

// ErrMalformedAnnotation is returned when the arguments of an entry or opt-out directive can not be parsed.
var ErrMalformedAnnotation = errors.New("malformed annotation")

// Annotation is a comment directive attached to a node, such as:
//
//	//flame "prefix"
//
// Args holds the unparsed text that follows the directive name.
type Annotation struct {
	Name string
	Args string
}

// HasArgs returns true if the directive was followed by any text.
func (a Annotation) HasArgs() bool {
	return a.Args != ""
}

func (a Annotation) String() string {
	if a.Args == "" {
		return "//" + a.Name
	}
	return "//" + a.Name + " " + a.Args
}

// parseAnnotations collects the directives found in the given decorations.
// A directive is a line comment with no space between the slashes and its name.
func parseAnnotations(decorations ...dst.Decorations) []Annotation {
	var annotations []Annotation
	for _, decs := range decorations {
		for _, line := range decs {
			if a, ok := parseDirective(line); ok {
				annotations = append(annotations, a)
			}
		}
	}
	return annotations
}

func parseDirective(comment string) (Annotation, bool) {
	text, ok := strings.CutPrefix(comment, "//")
	if !ok || text == "" {
		return Annotation{}, false
	}
	if c := text[0]; c == ' ' || c == '\t' || c == '/' {
		return Annotation{}, false
	}

	name, args := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		name, args = text[:i], text[i+1:]
	}
	return Annotation{
		Name: name,
		Args: strings.TrimSpace(args),
	}, true
}

// parseArguments parses the tail of an entry directive: a comma separated list of
// string literals. A trailing comma is accepted.
func parseArguments(text string) ([]string, error) {
	var (
		s    scanner.Scanner
		errs scanner.ErrorList
	)

	src := []byte(text)
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	s.Init(file, src, func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)

	var args []string
	expectString := true
	for {
		_, tok, lit := s.Scan()
		if errs.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMalformedAnnotation, errs[0].Msg)
		}

		switch {
		case tok == token.EOF:
			return args, nil
		case tok == token.SEMICOLON && lit == "\n":
			// automatic semicolon inserted after the last literal
			continue
		case tok == token.STRING && expectString:
			arg, err := strconv.Unquote(lit)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedAnnotation, lit, err)
			}
			args = append(args, arg)
			expectString = false
		case tok == token.COMMA && !expectString:
			expectString = true
		default:
			if lit == "" {
				lit = tok.String()
			}
			return nil, fmt.Errorf("%w: unexpected %s, expected a string literal", ErrMalformedAnnotation, lit)
		}
	}
}

// annotationSet holds the directive names that control instrumentation.
type annotationSet struct {
	entry      string
	optOut     string
	restricted []string
}

// find returns the first annotation with the given name.
func (s annotationSet) find(annotations []Annotation, name string) (Annotation, bool) {
	for _, a := range annotations {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// entryOf returns the entry directive among annotations, if there is one.
func (s annotationSet) entryOf(annotations []Annotation) (Annotation, bool) {
	return s.find(annotations, s.entry)
}

// excluded returns true if a node carrying these annotations must be left untouched by an
// enclosing traversal. Nodes with the entry directive are instrumented as their own root,
// and nodes with the opt-out directive are never instrumented.
func (s annotationSet) excluded(annotations []Annotation) bool {
	for _, a := range annotations {
		if a.Name == s.entry || a.Name == s.optOut {
			return true
		}
	}
	return false
}

// isRestricted returns true if the annotations bind the function to a compiler directive
// that forbids the extra calls a guard makes.
func (s annotationSet) isRestricted(annotations []Annotation) bool {
	for _, a := range annotations {
		for _, r := range s.restricted {
			if a.Name == r {
				return true
			}
		}
	}
	return false
}

// rootArguments parses the arguments of an entry directive into the initial qualified name.
func (s annotationSet) rootArguments(a Annotation) ([]string, error) {
	return parseArguments(a.Args)
}

// checkOptOut returns an error if an opt-out directive carries arguments.
func (s annotationSet) checkOptOut(annotations []Annotation) error {
	a, ok := s.find(annotations, s.optOut)
	if ok && a.HasArgs() {
		return fmt.Errorf("%w: %s takes no arguments", ErrMalformedAnnotation, a)
	}
	return nil
}
