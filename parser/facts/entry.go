package facts

// Entry is a fact about one declaration of a package, keyed by the declared name.
type Entry struct {
	Name string
	Fact Fact
}

func (e Entry) String() string {
	return e.Name + "=" + e.Fact.String()
}
