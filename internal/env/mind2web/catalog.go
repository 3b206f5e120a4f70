// internal/env/mind2web/catalog.go
package mind2web

import (
	"context"

	"github.com/spf13/cast"

	"github.com/xkilldash9x/webgym/internal/action"
)

type elementArgs struct {
	BackendNodeID int            `arg:"backend_node_id"`
	Tag           string         `arg:"tag"`
	Text          string         `arg:"text"`
	Option        map[string]any `arg:"option"`
}

func elementSchema(extra map[string]action.Descriptor) map[string]action.Descriptor {
	schema := map[string]action.Descriptor{
		"backend_node_id": action.Int.With().Require(),
		"tag":             action.String.With().Require(),
	}
	for k, v := range extra {
		schema[k] = v
	}
	return schema
}

func candidateAction(name, description string, extra map[string]action.Descriptor, value func(elementArgs) string) *action.Action[action.NoSession] {
	return action.MustNew(action.Definition[action.NoSession]{
		Name:        name,
		Description: description,
		Schema:      elementSchema(extra),
		Func: func(_ context.Context, _ action.NoSession, args action.Args) (any, error) {
			var p elementArgs
			if err := action.Decode(args, nil, &p); err != nil {
				return nil, err
			}
			c := Candidate{BackendNodeID: p.BackendNodeID, Tag: p.Tag}
			if value != nil {
				c.Value = value(p)
			}
			return c, nil
		},
	})
}

// optionValue picks the option's value entry, falling back to its text.
func optionValue(option map[string]any) string {
	for _, key := range []string{"value", "text"} {
		if v, ok := option[key]; ok {
			if s := cast.ToString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// NewSpace builds the three-action replay catalog.
func NewSpace() (*action.Space[action.NoSession], error) {
	return action.NewSpace(
		candidateAction("click", "Click the element in web page", nil, nil),
		candidateAction("type", "Type the text into the element in web page",
			map[string]action.Descriptor{"text": action.String.With().Require()},
			func(p elementArgs) string { return p.Text }),
		candidateAction("select", "Select an option of the element in web page",
			map[string]action.Descriptor{"option": action.Dict.With().Require()},
			func(p elementArgs) string { return optionValue(p.Option) }),
	)
}
