package facts

import "fmt"

// Keeper maps declaration names of a single package to the fact known about them.
// A name holds at most one fact.
type Keeper map[string]Fact

func NewKeeper() Keeper {
	return make(Keeper)
}

func (k Keeper) AddFact(entry Entry) error {
	switch {
	case entry.Fact == None:
		return fmt.Errorf("invalid fact kind: %s", entry.Fact)
	case entry.Fact > maximumFactValue:
		return fmt.Errorf("unknown fact: %d", entry.Fact)
	case entry.Name == "":
		return fmt.Errorf("empty fact name")
	}

	if existing, ok := k[entry.Name]; ok {
		return fmt.Errorf("%s already has fact %s", entry.Name, existing)
	}
	k[entry.Name] = entry.Fact
	return nil
}

func (k Keeper) GetFact(name string) Fact {
	return k[name]
}

// Excludes reports whether the declaration called name is left alone by enclosing traversals.
func (k Keeper) Excludes(name string) bool {
	return k[name].Excludes()
}
