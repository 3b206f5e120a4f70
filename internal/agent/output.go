// internal/agent/output.go
package agent

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// Thoughts is the reasoning part of a model reply.
type Thoughts struct {
	Reasoning string `json:"reasoning"`
	Plan      string `json:"plan"`
	Criticism string `json:"criticism"`
}

// ActionChoice names the action a reply picked and its arguments.
type ActionChoice struct {
	Name            string         `json:"name"`
	InputActionArgs map[string]any `json:"input_action_args"`
}

// Output is one parsed model reply. Observation is filled in by the agent with
// the observation the reply answered.
type Output struct {
	Thoughts    Thoughts     `json:"thoughts"`
	Action      ActionChoice `json:"action"`
	Observation string       `json:"observation,omitempty"`
}

// DefaultOutput is the record used for unparseable replies. Its field values
// double as the format description shown to the model.
func DefaultOutput() Output {
	return Output{
		Thoughts: Thoughts{
			Reasoning: "reasoning",
			Plan:      "- short bulleted\n- list that conveys\n- long-term plan",
			Criticism: "constructive self-criticism",
		},
		Action: ActionChoice{
			Name:            "action name",
			InputActionArgs: map[string]any{"arg name": "value"},
		},
	}
}

// OutputFormat renders DefaultOutput as the JSON the model is asked to reply with.
func OutputFormat() string {
	b, err := json.MarshalIndent(DefaultOutput(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// A regex to extract a JSON object from a markdown code block.
var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseOutput extracts a reply object from free text: a fenced block first,
// then the outermost braces. Python-style literals (single quotes, True, None)
// are accepted. Fields the reply omits keep their DefaultOutput values, except
// the arguments, which default to none.
func ParseOutput(response string) (Output, error) {
	candidate := extractObject(response)
	if candidate == "" {
		return Output{}, fmt.Errorf("could not find any JSON in the LLM response")
	}

	out := DefaultOutput()
	out.Action.InputActionArgs = nil
	if err := json.UnmarshalFromString(candidate, &out); err != nil {
		normalized := pythonToJSON(strings.NewReplacer("\r", "", "\n", "").Replace(candidate))
		out = DefaultOutput()
		out.Action.InputActionArgs = nil
		if err2 := json.UnmarshalFromString(normalized, &out); err2 != nil {
			return Output{}, fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
		}
	}
	if out.Action.InputActionArgs == nil {
		out.Action.InputActionArgs = map[string]any{}
	}
	return out, nil
}

func extractObject(response string) string {
	response = strings.TrimSpace(response)
	if m := jsonBlockRegex.FindStringSubmatch(response); len(m) > 1 {
		response = strings.TrimSpace(m[1])
	}
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first == -1 || last <= first {
		return ""
	}
	return response[first : last+1]
}

// pythonToJSON rewrites a Python literal (single-quoted strings, True, False,
// None, trailing commas) into JSON. Text that is already JSON passes through.
func pythonToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			end := writeString(&b, s, i)
			i = end
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i = j
		case c == ',':
			// Drop a comma that only precedes a closing bracket.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				i = j
				continue
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// writeString copies the quoted string starting at s[start] as a JSON string
// and returns the index after its closing quote.
func writeString(b *strings.Builder, s string, start int) int {
	quote := s[start]
	b.WriteByte('"')
	i := start + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			next := s[i+1]
			if next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i += 2
			continue
		case c == quote:
			b.WriteByte('"')
			return i + 1
		case c == '"':
			b.WriteString(`\"`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
		i++
	}
	b.WriteByte('"')
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
