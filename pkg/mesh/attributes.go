package mesh

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Attributes is a set of named, typed side tables attached to one element
// kind of a mesh (vertices, facets, corners or cells). Every table holds
// exactly one value per element; tables grow and shrink with the elements.
type Attributes struct {
	size   int
	stores map[string]store
}

// store is the type-erased view of an Attribute used for bookkeeping.
type store interface {
	resize(n int)
	compact(old2new []int, n int)
	clone() store
}

// Attribute is a typed per-element table.
type Attribute[T any] struct {
	Name   string
	Values []T
}

// Get returns the value attached to element i.
func (a *Attribute[T]) Get(i int) T { return a.Values[i] }

// Set attaches v to element i.
func (a *Attribute[T]) Set(i int, v T) { a.Values[i] = v }

// Len returns the number of elements covered by the table.
func (a *Attribute[T]) Len() int { return len(a.Values) }

func (a *Attribute[T]) resize(n int) {
	if n <= len(a.Values) {
		a.Values = a.Values[:n]
		return
	}
	a.Values = append(a.Values, make([]T, n-len(a.Values))...)
}

func (a *Attribute[T]) compact(old2new []int, n int) {
	out := make([]T, n)
	for old, nw := range old2new {
		if nw != NoIndex {
			out[nw] = a.Values[old]
		}
	}
	a.Values = out
}

func (a *Attribute[T]) clone() store {
	return &Attribute[T]{Name: a.Name, Values: slices.Clone(a.Values)}
}

func newAttributes() *Attributes {
	return &Attributes{stores: make(map[string]store)}
}

// Len returns the number of elements the tables are sized for.
func (a *Attributes) Len() int { return a.size }

// Has reports whether a table named name exists.
func (a *Attributes) Has(name string) bool {
	_, ok := a.stores[name]
	return ok
}

// Delete removes the table named name. Deleting a missing table is a no-op.
func (a *Attributes) Delete(name string) {
	delete(a.stores, name)
}

// Names returns the sorted names of all tables.
func (a *Attributes) Names() []string {
	names := lo.Keys(a.stores)
	slices.Sort(names)
	return names
}

func (a *Attributes) resize(n int) {
	a.size = n
	for _, s := range a.stores {
		s.resize(n)
	}
}

func (a *Attributes) compact(old2new []int, n int) {
	a.size = n
	for _, s := range a.stores {
		s.compact(old2new, n)
	}
}

func (a *Attributes) clone() *Attributes {
	c := &Attributes{size: a.size, stores: make(map[string]store, len(a.stores))}
	for name, s := range a.stores {
		c.stores[name] = s.clone()
	}
	return c
}

// Bind returns the table named name, creating a zero-valued one if it does
// not exist yet. It fails if a table with that name exists with another
// value type.
func Bind[T any](a *Attributes, name string) (*Attribute[T], error) {
	if s, ok := a.stores[name]; ok {
		attr, ok := s.(*Attribute[T])
		if !ok {
			return nil, fmt.Errorf("mesh: attribute %q already bound as %T", name, s)
		}
		return attr, nil
	}
	attr := &Attribute[T]{Name: name, Values: make([]T, a.size)}
	a.stores[name] = attr
	return attr, nil
}

// Lookup returns an existing table without creating it.
func Lookup[T any](a *Attributes, name string) (*Attribute[T], bool) {
	s, ok := a.stores[name]
	if !ok {
		return nil, false
	}
	attr, ok := s.(*Attribute[T])
	return attr, ok
}
