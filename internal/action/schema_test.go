// internal/action/schema_test.go
package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSchema(t *testing.T, defs map[string]Descriptor) *Schema {
	t.Helper()
	s, err := CompileSchema(defs)
	require.NoError(t, err)
	return s
}

type staticField struct{ ok bool }

func (f staticField) Validate(any) error {
	if f.ok {
		return nil
	}
	return assert.AnError
}
func (staticField) Default() (any, bool) { return nil, false }
func (staticField) Required() bool       { return false }
func (staticField) Describe() string     { return "static" }

func TestCompileSchema_Malformed(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
	}{
		{"nil descriptor", nil},
		{"empty union", Type()},
		{"unknown kind", Type(Kind(99))},
		{"items on non-list", Type(String).Of(Int)},
		{"range on string", String.With(AtLeast(0))},
		{"inverted range", Int.With(Between(5, 1))},
		{"empty enumeration", String.With(OneOf())},
		{"enumeration on int", Int.With(OneOf("a"))},
		{"url on float", Float.With(URL())},
		{"nil constraint", Int.With(nil)},
		{"default of wrong kind", Int.With().WithDefault("zero")},
		{"default and factory", Constrained{Kind: Int, Default: 1, DefaultFactory: func() any { return 2 }}},
		{"factory of wrong kind", Constrained{Kind: Int, DefaultFactory: func() any { return "x" }}},
		{"nil prebuilt", Use(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchema(map[string]Descriptor{"arg": tt.desc})
			assert.ErrorIs(t, err, ErrInvalidSchema)
			assert.Contains(t, err.Error(), "arg")
		})
	}
}

func TestSchema_KindRules(t *testing.T) {
	tests := []struct {
		name  string
		desc  Descriptor
		value any
		ok    bool
	}{
		{"int accepts int", Type(Int), 3, true},
		{"int accepts int64", Type(Int), int64(3), true},
		{"int accepts integral float", Type(Int), 3.0, true},
		{"int rejects fractional float", Type(Int), 3.5, false},
		{"int rejects numeric string", Type(Int), "3", false},
		{"int rejects bool", Type(Int), true, false},
		{"float accepts int", Type(Float), 2, true},
		{"float accepts float", Type(Float), 2.5, true},
		{"float rejects string", Type(Float), "2.5", false},
		{"string accepts string", Type(String), "x", true},
		{"string rejects int", Type(String), 1, false},
		{"bool accepts bool", Type(Bool), false, true},
		{"dict accepts string-keyed map", Type(Dict), map[string]any{"value": "a"}, true},
		{"dict accepts typed map", Type(Dict), map[string]string{"value": "a"}, true},
		{"dict rejects int-keyed map", Type(Dict), map[int]any{1: "a"}, false},
		{"list accepts slice", Type(List), []any{1, "a"}, true},
		{"list accepts array", Type(List), [2]int{1, 2}, true},
		{"union accepts either", Type(List, String), "abc", true},
		{"union rejects others", Type(List, String), 1, false},
		{"list items accepted", Type(List, String).Of(Int, String), []any{13, "a"}, true},
		{"list items rejected", Type(List, String).Of(Int, String), []any{true}, false},
		{"null rejected for typed field", Type(String), nil, false},
		{"any accepts null", AnyValue(), nil, true},
		{"any accepts everything", AnyValue(), struct{}{}, true},
		{"prebuilt pass", Use(staticField{ok: true}), 1, true},
		{"prebuilt fail", Use(staticField{ok: false}), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSchema(t, map[string]Descriptor{"v": tt.desc})
			_, err := s.Validate(Args{"v": tt.value})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidArguments)
			}
		})
	}
}

func TestSchema_Constraints(t *testing.T) {
	tests := []struct {
		name  string
		desc  Descriptor
		value any
		ok    bool
	}{
		{"non-negative accepts zero", Float.With(AtLeast(0)), 0.0, true},
		{"non-negative rejects negative", Float.With(AtLeast(0)), -0.5, false},
		{"int bound", Int.With(AtLeast(0)), -1, false},
		{"between inside", Int.With(Between(1, 3)), 2, true},
		{"between above", Int.With(Between(1, 3)), 4, false},
		{"enumeration member", String.With(OneOf("up", "down")), "down", true},
		{"enumeration outsider", String.With(OneOf("up", "down")), "left", false},
		{"url accepted", String.With(URL()), "http://example.com/path?q=1", true},
		{"url with https", String.With(URL()), "https://localhost:7770", true},
		{"url without scheme", String.With(URL()), "example.com", false},
		{"url with bad scheme", String.With(URL()), "javascript:alert(1)", false},
		{"url garbage", String.With(URL()), "not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSchema(t, map[string]Descriptor{"v": tt.desc})
			_, err := s.Validate(Args{"v": tt.value})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidArguments)
			}
		})
	}
}

func TestSchema_ValidateIsPermissiveAndFillsDefaults(t *testing.T) {
	s := mustSchema(t, map[string]Descriptor{
		"role": Defaulted("link"),
		"nth":  Int.With(AtLeast(0)).WithDefault(0),
		"tags": DefaultedBy(func() any { return []string{} }),
		"text": String.With(),
	})

	out, err := s.Validate(Args{"extra": struct{}{}})
	require.NoError(t, err)

	assert.Equal(t, "link", out["role"])
	assert.Equal(t, 0, out["nth"])
	assert.Equal(t, []string{}, out["tags"])
	assert.NotContains(t, out, "text", "optional fields without defaults stay absent")
	assert.Contains(t, out, "extra", "undeclared keys pass through")
}

func TestSchema_ValidateReportsEveryFailingField(t *testing.T) {
	s := mustSchema(t, map[string]Descriptor{
		"left": Float.With(AtLeast(0)).Require(),
		"top":  Float.With(AtLeast(0)).Require(),
		"key":  Type(String),
	})

	_, err := s.Validate(Args{"left": -1, "key": 3})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
	assert.Equal(t, "missing required argument", verr.Fields["top"])
	assert.Contains(t, err.Error(), "key:")
}

func TestSchema_Args(t *testing.T) {
	s := mustSchema(t, map[string]Descriptor{
		"keys":         Type(List, String).Of(Int, String),
		"element_role": String.With(OneOf("link", "button")).WithDefault("link"),
	})
	args := s.Args()
	require.Len(t, args, 2)
	assert.Equal(t, "element_role", args[0].Name)
	assert.Equal(t, "link", args[0].Default)
	assert.Equal(t, "keys", args[1].Name)
	assert.Equal(t, "list[int | str] | str", args[1].Type)
	assert.Equal(t, 2, s.Len())
}

func TestArgs_DecodeAndDefaults(t *testing.T) {
	type params struct {
		ElementRole string  `arg:"element_role"`
		ElementName string  `arg:"element_name"`
		Nth         int     `arg:"nth"`
		Left        float64 `arg:"left,omitempty"`
	}
	defaults := MustDefaultsOf(params{ElementRole: "link"})
	assert.Equal(t, Args{"element_role": "link", "element_name": "", "nth": 0}, defaults)

	var p params
	require.NoError(t, Decode(Args{"nth": 2.0, "left": 10}, defaults, &p))
	assert.Equal(t, params{ElementRole: "link", Nth: 2, Left: 10}, p)

	t.Run("typed accessors", func(t *testing.T) {
		a := Args{"n": 3.0, "s": "x"}
		n, err := a.Int("n")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		_, err = a.Float("missing")
		assert.Error(t, err)
		assert.Equal(t, "x", a.StringOr("s", "y"))
		assert.Equal(t, "y", a.StringOr("missing", "y"))
		assert.Equal(t, []string{"n", "s"}, a.Keys())
	})

	t.Run("merge leaves inputs untouched", func(t *testing.T) {
		base := Args{"a": 1}
		over := Args{"a": 2, "b": 3}
		merged := base.Merge(over)
		assert.Equal(t, Args{"a": 2, "b": 3}, merged)
		assert.Equal(t, Args{"a": 1}, base)
	})
}
