package facts

// Fact records what the instrumentation learned about a named declaration before
// any function bodies are rewritten.
type Fact uint8

const (
	// maximumFactValue is the value of the highest currently known Fact.
	maximumFactValue = 2

	// None is the default value for Fact.
	// Getting a Fact of type None means there are no facts for the given key.
	None Fact = 0

	// EntryType is a Fact that represents a type declaration carrying the entry directive.
	// Methods of the type are instrumented by the root the directive creates.
	EntryType Fact = 1

	// OptOutType is a Fact that represents a type declaration carrying the opt-out directive.
	// Methods of the type are never instrumented.
	OptOutType Fact = 2
)

func (f Fact) String() string {
	switch f {
	case None:
		return "None"
	case EntryType:
		return "EntryType"
	case OptOutType:
		return "OptOutType"
	default:
		return "Unknown"
	}
}

// Excludes returns true if methods of a type with this fact are skipped by enclosing traversals.
func (f Fact) Excludes() bool {
	return f == EntryType || f == OptOutType
}
