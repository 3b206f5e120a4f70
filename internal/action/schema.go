// internal/action/schema.go
package action

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Kind is the runtime type a schema field accepts.
type Kind int

const (
	Any Kind = iota
	Int
	Float
	String
	Bool
	Dict
	List
)

var kindNames = map[Kind]string{
	Any:    "any",
	Int:    "int",
	Float:  "float",
	String: "str",
	Bool:   "bool",
	Dict:   "dict",
	List:   "list",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// With starts a constrained descriptor of kind k.
func (k Kind) With(constraints ...Constraint) Constrained {
	return Constrained{Kind: k, Constraints: constraints}
}

// Descriptor is the declared shape of one argument. It is a closed sum of
// Primitive, Constrained and Prebuilt, resolved into a Field once when the
// owning schema is compiled.
type Descriptor interface {
	compile() (Field, error)
}

// Field is a compiled argument validator. A Field handed to Prebuilt is used as is.
type Field interface {
	// Validate checks a single value that is present in the argument mapping.
	Validate(value any) error
	// Default returns the value used when the argument is absent.
	Default() (any, bool)
	// Required reports whether the argument must be present.
	Required() bool
	// Describe renders the accepted type for prompts and listings.
	Describe() string
}

// Primitive accepts any of Kinds. When List is among them, Items optionally
// restricts list elements.
type Primitive struct {
	Kinds      []Kind
	Items      []Kind
	IsRequired bool
}

// Type builds a Primitive; more than one kind declares a union.
func Type(kinds ...Kind) Primitive {
	return Primitive{Kinds: kinds}
}

// Of restricts list elements to the given kinds.
func (p Primitive) Of(items ...Kind) Primitive {
	p.Items = items
	return p
}

// Require marks the argument as mandatory.
func (p Primitive) Require() Primitive {
	p.IsRequired = true
	return p
}

// AnyValue is a bare field: every value, including nil, is accepted.
func AnyValue() Primitive {
	return Primitive{Kinds: []Kind{Any}}
}

func (p Primitive) compile() (Field, error) {
	if len(p.Kinds) == 0 {
		return nil, errors.New("primitive descriptor declares no kinds")
	}
	hasList := false
	for _, k := range p.Kinds {
		if !k.valid() {
			return nil, fmt.Errorf("unknown kind %s", k)
		}
		hasList = hasList || k == List
	}
	if len(p.Items) > 0 && !hasList {
		return nil, errors.New("item kinds declared on a non-list descriptor")
	}
	for _, k := range p.Items {
		if !k.valid() {
			return nil, fmt.Errorf("unknown item kind %s", k)
		}
	}
	return &field{kinds: p.Kinds, items: p.Items, required: p.IsRequired}, nil
}

// Constrained is a single-kind field with validators and an optional default.
type Constrained struct {
	Kind           Kind
	Constraints    []Constraint
	Default        any
	DefaultFactory func() any
	IsRequired     bool

	hasDefault bool
}

// Defaulted declares a field by its default value; the kind is taken from the value.
func Defaulted(v any) Constrained {
	return Constrained{Kind: kindOf(v), Default: v, hasDefault: true}
}

// DefaultedBy declares a field by a default factory; the kind is taken from one
// call to the factory at compile time.
func DefaultedBy(factory func() any) Constrained {
	c := Constrained{Kind: Any, DefaultFactory: factory}
	if factory != nil {
		c.Kind = kindOf(factory())
	}
	return c
}

// WithDefault sets a static default.
func (c Constrained) WithDefault(v any) Constrained {
	c.Default = v
	c.hasDefault = true
	return c
}

// Require marks the argument as mandatory.
func (c Constrained) Require() Constrained {
	c.IsRequired = true
	return c
}

func (c Constrained) compile() (Field, error) {
	if !c.Kind.valid() {
		return nil, fmt.Errorf("unknown kind %s", c.Kind)
	}
	for _, con := range c.Constraints {
		if con == nil {
			return nil, errors.New("nil constraint")
		}
		if err := con.compatible(c.Kind); err != nil {
			return nil, err
		}
	}
	f := &field{kinds: []Kind{c.Kind}, constraints: c.Constraints, required: c.IsRequired}
	hasDefault := c.hasDefault || c.Default != nil
	switch {
	case hasDefault && c.DefaultFactory != nil:
		return nil, errors.New("both default and default factory are set")
	case c.DefaultFactory != nil:
		f.factory = c.DefaultFactory
		if v := c.DefaultFactory(); !matchKind(c.Kind, v) {
			return nil, fmt.Errorf("default factory returns %T, expected %s", v, c.Kind)
		}
	case hasDefault:
		if c.Default != nil && !matchKind(c.Kind, c.Default) {
			return nil, fmt.Errorf("default %v (%T) does not match kind %s", c.Default, c.Default, c.Kind)
		}
		f.def, f.hasDef = c.Default, true
	}
	return f, nil
}

// Prebuilt passes an already-built Field through unchanged.
type Prebuilt struct {
	Field Field
}

// Use wraps a hand-written Field as a Descriptor.
func Use(f Field) Prebuilt {
	return Prebuilt{Field: f}
}

func (p Prebuilt) compile() (Field, error) {
	if p.Field == nil {
		return nil, errors.New("prebuilt descriptor has no field")
	}
	return p.Field, nil
}

// field is the Field produced by Primitive and Constrained descriptors.
type field struct {
	kinds       []Kind
	items       []Kind
	constraints []Constraint
	def         any
	hasDef      bool
	factory     func() any
	required    bool
}

func (f *field) Validate(value any) error {
	if value == nil {
		if containsKind(f.kinds, Any) {
			return nil
		}
		return errors.New("field may not be null")
	}
	matched := false
	for _, k := range f.kinds {
		if matchKind(k, value) {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("expected %s, got %T", f.Describe(), value)
	}
	if len(f.items) > 0 && isList(value) {
		rv := reflect.ValueOf(value)
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			ok := false
			for _, k := range f.items {
				if matchKind(k, item) {
					ok = true
					break
				}
			}
			if !ok {
				return fmt.Errorf("item %d: expected %s, got %T", i, joinKinds(f.items), item)
			}
		}
	}
	for _, c := range f.constraints {
		if err := c.Check(value); err != nil {
			return err
		}
	}
	return nil
}

func (f *field) Default() (any, bool) {
	if f.factory != nil {
		return f.factory(), true
	}
	return f.def, f.hasDef
}

func (f *field) Required() bool { return f.required }

func (f *field) Describe() string {
	desc := joinKinds(f.kinds)
	if len(f.items) > 0 {
		desc = strings.Replace(desc, List.String(), fmt.Sprintf("list[%s]", joinKinds(f.items)), 1)
	}
	for _, c := range f.constraints {
		desc += " " + c.String()
	}
	return desc
}

// Schema is a compiled mapping from argument name to Field.
type Schema struct {
	fields map[string]Field
	order  []string
}

// CompileSchema resolves every descriptor. Any malformed descriptor fails the
// whole schema with ErrInvalidSchema.
func CompileSchema(defs map[string]Descriptor) (*Schema, error) {
	s := &Schema{fields: make(map[string]Field, len(defs))}
	var errs []error
	for name, d := range defs {
		if d == nil {
			errs = append(errs, fmt.Errorf("%s: descriptor is nil", name))
			continue
		}
		f, err := d.compile()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		s.fields[name] = f
		s.order = append(s.order, name)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, errors.Join(errs...))
	}
	sort.Strings(s.order)
	return s, nil
}

// ValidationError lists the failing arguments of one validation pass.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", n, e.Fields[n]))
	}
	return strings.Join(parts, "; ")
}

// Validate checks args against the schema and returns the validated mapping:
// declared fields absent from args are filled from their defaults, and keys the
// schema does not declare are copied through unvalidated.
func (s *Schema) Validate(args Args) (Args, error) {
	out := args.Clone()
	verr := &ValidationError{Fields: map[string]string{}}
	for _, name := range s.order {
		f := s.fields[name]
		v, present := args[name]
		if !present {
			if def, ok := f.Default(); ok {
				out[name] = def
				continue
			}
			if f.Required() {
				verr.Fields[name] = "missing required argument"
			}
			continue
		}
		if err := f.Validate(v); err != nil {
			verr.Fields[name] = err.Error()
		}
	}
	if len(verr.Fields) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArguments, verr)
	}
	return out, nil
}

// ArgInfo describes one declared argument.
type ArgInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// Args describes the declared arguments in name order.
func (s *Schema) Args() []ArgInfo {
	infos := make([]ArgInfo, 0, len(s.order))
	for _, name := range s.order {
		f := s.fields[name]
		info := ArgInfo{Name: name, Type: f.Describe(), Required: f.Required()}
		if def, ok := f.Default(); ok {
			info.Default = def
		}
		infos = append(infos, info)
	}
	return infos
}

// Len returns the number of declared arguments.
func (s *Schema) Len() int { return len(s.order) }

func matchKind(k Kind, v any) bool {
	if k == Any {
		return true
	}
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch k {
	case Int:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
		}
		return false
	case Float:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	case String:
		return rv.Kind() == reflect.String
	case Bool:
		return rv.Kind() == reflect.Bool
	case Dict:
		return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
	case List:
		return isList(v)
	}
	return false
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func kindOf(v any) Kind {
	for _, k := range []Kind{Bool, String, Dict, List} {
		if matchKind(k, v) {
			return k
		}
	}
	if v == nil {
		return Any
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Float32, reflect.Float64:
		return Float
	}
	if matchKind(Int, v) {
		return Int
	}
	return Any
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

func joinKinds(kinds []Kind) string {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return strings.Join(names, " | ")
}
