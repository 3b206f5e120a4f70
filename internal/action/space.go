// File: internal/action/space.go
package action

import (
	"fmt"
)

// Space is the catalog of actions available in one environment. It is built
// eagerly from an ordered list and never changes afterwards; the name index and
// the declared action names always agree.
type Space[S any] struct {
	actions []*Action[S]
	names   []string
	index   map[string]*Action[S]
}

// NewSpace registers the actions in order. Names must be unique.
func NewSpace[S any](actions ...*Action[S]) (*Space[S], error) {
	s := &Space[S]{
		actions: make([]*Action[S], 0, len(actions)),
		names:   make([]string, 0, len(actions)),
		index:   make(map[string]*Action[S], len(actions)),
	}
	for i, a := range actions {
		if a == nil {
			return nil, fmt.Errorf("%w: action at position %d is nil", ErrInvalidDefinition, i)
		}
		if _, exists := s.index[a.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAction, a.Name())
		}
		s.actions = append(s.actions, a)
		s.names = append(s.names, a.Name())
		s.index[a.Name()] = a
	}
	return s, nil
}

// Actions returns the ordered catalog.
func (s *Space[S]) Actions() []*Action[S] {
	out := make([]*Action[S], len(s.actions))
	copy(out, s.actions)
	return out
}

// Names returns the action names in catalog order.
func (s *Space[S]) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Space[S]) Len() int { return len(s.actions) }

// Has reports whether name is in the catalog.
func (s *Space[S]) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Get looks an action up by its declared name.
func (s *Space[S]) Get(name string) (*Action[S], error) {
	a, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrActionNotFound, name, s.names)
	}
	return a, nil
}

// Resolve turns a step target into an action. A reference is returned as given;
// a name goes through Get.
func (s *Space[S]) Resolve(t Target[S]) (*Action[S], error) {
	if t.ref != nil {
		return t.ref, nil
	}
	return s.Get(t.name)
}

// Describe lists every action's Info in catalog order.
func (s *Space[S]) Describe() []Info {
	infos := make([]Info, 0, len(s.actions))
	for _, a := range s.actions {
		infos = append(infos, a.Info())
	}
	return infos
}

// Target selects the action a step runs: either by name, resolved through the
// environment's Space, or by a direct reference.
type Target[S any] struct {
	name string
	ref  *Action[S]
}

// ByName targets the catalog entry called name.
func ByName[S any](name string) Target[S] {
	return Target[S]{name: name}
}

// ByRef targets a, bypassing catalog lookup.
func ByRef[S any](a *Action[S]) Target[S] {
	return Target[S]{ref: a}
}

// Name returns the targeted action's name.
func (t Target[S]) Name() string {
	if t.ref != nil {
		return t.ref.Name()
	}
	return t.name
}

func (t Target[S]) String() string { return t.Name() }
