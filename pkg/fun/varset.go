package fun

import (
	"sort"

	"github.com/samber/lo"
)

// VarSet is a set of variable names
type VarSet map[string]bool

// NewVarSet creates a new VarSet
func NewVarSet(names ...string) VarSet {
	set := make(VarSet, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// Union returns the union of two VarSets without modifying either
func (vs VarSet) Union(other VarSet) VarSet {
	return NewVarSet(lo.Union(lo.Keys(vs), lo.Keys(other))...)
}

// Contains checks if a name is in the set
func (vs VarSet) Contains(name string) bool {
	return vs[name]
}

// Add adds a name to the set
func (vs VarSet) Add(name string) {
	vs[name] = true
}

// Remove removes a name from the set
func (vs VarSet) Remove(name string) {
	delete(vs, name)
}

// Sorted returns the names in lexical order
func (vs VarSet) Sorted() []string {
	names := lo.Keys(vs)
	sort.Strings(names)
	return names
}
