// internal/action/constraints.go
package action

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// validate is shared by every constraint; validator caches parsed tags internally.
var validate = validator.New()

// Constraint restricts the values a Constrained field accepts.
type Constraint interface {
	Check(value any) error
	String() string
	compatible(k Kind) error
}

// Range bounds a numeric value. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

// AtLeast is a half-open Range with a lower bound.
func AtLeast(lo float64) Range {
	return Range{Min: &lo}
}

// Between is a closed Range.
func Between(lo, hi float64) Range {
	return Range{Min: &lo, Max: &hi}
}

func (r Range) tag() string {
	var parts []string
	if r.Min != nil {
		parts = append(parts, "gte="+strconv.FormatFloat(*r.Min, 'f', -1, 64))
	}
	if r.Max != nil {
		parts = append(parts, "lte="+strconv.FormatFloat(*r.Max, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (r Range) Check(value any) error {
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return fmt.Errorf("expected a number, got %T", value)
	}
	tag := r.tag()
	if tag == "" {
		return nil
	}
	if err := validate.Var(n, tag); err != nil {
		return fmt.Errorf("%v is outside %s", value, r.String())
	}
	return nil
}

func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = strconv.FormatFloat(*r.Min, 'f', -1, 64)
	}
	if r.Max != nil {
		hi = strconv.FormatFloat(*r.Max, 'f', -1, 64)
	}
	return fmt.Sprintf("range[%s, %s]", lo, hi)
}

func (r Range) compatible(k Kind) error {
	if k != Int && k != Float {
		return fmt.Errorf("range constraint on non-numeric kind %s", k)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("range minimum %v exceeds maximum %v", *r.Min, *r.Max)
	}
	return nil
}

type oneOf struct {
	choices []string
}

// OneOf restricts a string to an enumeration.
func OneOf(choices ...string) Constraint {
	return oneOf{choices: choices}
}

func (o oneOf) Check(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %T", value)
	}
	if !slices.Contains(o.choices, s) {
		return fmt.Errorf("%q is not one of %s", s, o.String())
	}
	return nil
}

func (o oneOf) String() string {
	if len(o.choices) > 8 {
		return fmt.Sprintf("one of [%s, ... %d more]", strings.Join(o.choices[:8], ", "), len(o.choices)-8)
	}
	return fmt.Sprintf("one of [%s]", strings.Join(o.choices, ", "))
}

func (o oneOf) compatible(k Kind) error {
	if k != String {
		return fmt.Errorf("enumeration constraint on non-string kind %s", k)
	}
	if len(o.choices) == 0 {
		return fmt.Errorf("enumeration constraint has no choices")
	}
	return nil
}

type urlFormat struct{}

// URL restricts a string to an absolute http(s) or ftp(s) URL with a host.
func URL() Constraint {
	return urlFormat{}
}

var urlSchemes = []string{"http", "https", "ftp", "ftps"}

func (urlFormat) Check(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %T", value)
	}
	if err := validate.Var(s, "url"); err != nil {
		return fmt.Errorf("%q is not a valid URL", s)
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !slices.Contains(urlSchemes, strings.ToLower(u.Scheme)) {
		return fmt.Errorf("%q is not a valid URL", s)
	}
	return nil
}

func (urlFormat) String() string { return "url" }

func (urlFormat) compatible(k Kind) error {
	if k != String {
		return fmt.Errorf("url constraint on non-string kind %s", k)
	}
	return nil
}
