// internal/action/args.go
package action

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// Args is a keyword-argument mapping passed to an action. Values usually come from
// JSON (numbers decode as float64), so the typed accessors below coerce through cast.
type Args map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a new mapping holding a's entries overlaid by over's entries.
// Neither input is modified.
func (a Args) Merge(over Args) Args {
	out := make(Args, len(a)+len(over))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Has reports whether key is present, even with a nil value.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Keys returns the argument names in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns the named argument as an int.
func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("argument %q is missing", key)
	}
	return cast.ToIntE(v)
}

// Float returns the named argument as a float64.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("argument %q is missing", key)
	}
	return cast.ToFloat64E(v)
}

// String returns the named argument as a string.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("argument %q is missing", key)
	}
	return cast.ToStringE(v)
}

// StringOr returns the named argument as a string, or fallback when it is absent.
func (a Args) StringOr(key, fallback string) string {
	if _, ok := a[key]; !ok {
		return fallback
	}
	s, err := cast.ToStringE(a[key])
	if err != nil {
		return fallback
	}
	return s
}

// argTag is the struct tag used by Decode and DefaultsOf.
const argTag = "arg"

// Decode fills out from defaults overlaid by args. Executables use it to apply
// their own declared parameter defaults, since they receive only the caller's
// arguments. Numeric values are decoded weakly so JSON float64 fits int fields.
func Decode(args, defaults Args, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          argTag,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build argument decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(defaults.Merge(args))); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	return nil
}

// DefaultsOf converts a struct of parameter defaults into Args. Fields tagged
// `arg:",omitempty"` are left out when zero, which is how an executable declares a
// parameter without a default.
func DefaultsOf(v any) (Args, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: argTag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build defaults decoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return nil, fmt.Errorf("failed to derive defaults: %w", err)
	}
	return Args(out), nil
}

// MustDefaultsOf is DefaultsOf for package-level catalogs whose default structs are
// fixed at compile time.
func MustDefaultsOf(v any) Args {
	a, err := DefaultsOf(v)
	if err != nil {
		panic(err)
	}
	return a
}
