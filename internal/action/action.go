// File: internal/action/action.go
package action

import (
	"context"
	"fmt"
)

// NoSession is the session type of environments whose executables are self-contained.
type NoSession struct{}

// Func is an action's executable. The environment threads its live session handle
// in at call time; args holds exactly what the caller passed.
type Func[S any] func(ctx context.Context, session S, args Args) (any, error)

// Definition is everything needed to build an Action.
type Definition[S any] struct {
	Name        string
	Description string
	// Disabled actions refuse every call until re-enabled.
	Disabled bool
	Func     Func[S]
	// Defaults are the executable's own parameter defaults. They are merged under
	// the caller's arguments for validation only.
	Defaults Args
	Schema   map[string]Descriptor
	Metadata []map[string]any
	Tags     []string
}

// Action is a named, schema-validated, toggleable unit of capability. It holds no
// session state; apart from the enabled flag it is immutable after New.
type Action[S any] struct {
	name        string
	description string
	enabled     bool
	fn          Func[S]
	defaults    Args
	schema      *Schema
	metadata    []map[string]any
	tags        []string
}

// New compiles the definition's schema and builds the Action. Malformed
// descriptors fail here rather than at call time.
func New[S any](def Definition[S]) (*Action[S], error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: action name must not be empty", ErrInvalidDefinition)
	}
	schema, err := CompileSchema(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", def.Name, err)
	}
	return &Action[S]{
		name:        def.Name,
		description: def.Description,
		enabled:     !def.Disabled,
		fn:          def.Func,
		defaults:    def.Defaults.Clone(),
		schema:      schema,
		metadata:    def.Metadata,
		tags:        def.Tags,
	}, nil
}

// MustNew is New for fixed catalogs; it panics on a malformed definition.
func MustNew[S any](def Definition[S]) *Action[S] {
	a, err := New(def)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Action[S]) Name() string               { return a.name }
func (a *Action[S]) Description() string        { return a.description }
func (a *Action[S]) Enabled() bool              { return a.enabled }
func (a *Action[S]) SetEnabled(enabled bool)    { a.enabled = enabled }
func (a *Action[S]) Implemented() bool          { return a.fn != nil }
func (a *Action[S]) Schema() *Schema            { return a.schema }
func (a *Action[S]) Defaults() Args             { return a.defaults.Clone() }
func (a *Action[S]) Metadata() []map[string]any { return a.metadata }
func (a *Action[S]) Tags() []string             { return a.tags }

func (a *Action[S]) String() string { return a.name }

// Call is the single entry point of an action. It fails when the action is
// disabled or has no executable, validates the caller's arguments merged over
// the executable's defaults, and only then runs the executable with the caller's
// arguments. The executable's result and error are returned unchanged.
func (a *Action[S]) Call(ctx context.Context, session S, args Args) (any, error) {
	if !a.enabled {
		return nil, fmt.Errorf("%w: %s", ErrActionDisabled, a.name)
	}
	if a.fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrActionUnimplemented, a.name)
	}
	if _, err := a.schema.Validate(a.defaults.Merge(args)); err != nil {
		return nil, fmt.Errorf("action %q: %w", a.name, err)
	}
	return a.fn(ctx, session, args.Clone())
}

// Info is a serializable description of an action.
type Info struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	Args        []ArgInfo `json:"args"`
	Tags        []string  `json:"tags,omitempty"`
}

// Info describes the action and its declared arguments.
func (a *Action[S]) Info() Info {
	return Info{
		Name:        a.name,
		Description: a.description,
		Enabled:     a.enabled,
		Args:        a.schema.Args(),
		Tags:        a.tags,
	}
}
