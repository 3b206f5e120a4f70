// internal/llmclient/template.go
package llmclient

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"text/template/parse"
)

// DefaultTemplate is used when no template file is configured.
const DefaultTemplate = `You are {{.name}}, an agent that completes tasks in a web browser.

Task: {{.task}}

Actions you can take, with their arguments:
{{.actions}}

Your most recent steps (oldest first, at most {{.trajectory_max_length}}):
{{.trajectory}}

Current observation:
{{.observation}}

Reply with a single JSON object and nothing else, in this format:
{{.output_format}}
`

// PromptTemplate is a text/template prompt whose input variables are the
// top-level fields it references, e.g. {{.task}}.
type PromptTemplate struct {
	tmpl *template.Template
	vars []string
}

// ParsePromptTemplate parses text. Rendering fails on a missing variable.
func ParsePromptTemplate(name, text string) (*PromptTemplate, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}
	seen := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			collectFields(t.Tree.Root, seen)
		}
	}
	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	slices.Sort(vars)
	return &PromptTemplate{tmpl: tmpl, vars: vars}, nil
}

// LoadPromptTemplate reads a template file; an empty path yields DefaultTemplate.
func LoadPromptTemplate(path string) (*PromptTemplate, error) {
	if path == "" {
		return ParsePromptTemplate("default", DefaultTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	return ParsePromptTemplate(filepath.Base(path), string(data))
}

// InputVariables lists the variables the template references, sorted.
func (p *PromptTemplate) InputVariables() []string {
	return slices.Clone(p.vars)
}

func (p *PromptTemplate) Render(vars map[string]any) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, vars); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return b.String(), nil
}

func collectFields(node parse.Node, seen map[string]bool) {
	switch n := node.(type) {
	case nil:
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collectFields(child, seen)
		}
	case *parse.ActionNode:
		collectFields(n.Pipe, seen)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			for _, arg := range cmd.Args {
				collectFields(arg, seen)
			}
		}
	case *parse.FieldNode:
		if len(n.Ident) > 0 {
			seen[n.Ident[0]] = true
		}
	case *parse.ChainNode:
		collectFields(n.Node, seen)
	case *parse.IfNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, seen)
	case *parse.WithNode:
		// Fields inside with/range bodies are relative to the new dot.
		collectFields(n.Pipe, seen)
		collectFields(n.ElseList, seen)
	case *parse.TemplateNode:
		collectFields(n.Pipe, seen)
	}
}

func collectBranch(n *parse.BranchNode, seen map[string]bool) {
	collectFields(n.Pipe, seen)
	if n.NodeType == parse.NodeIf {
		collectFields(n.List, seen)
	}
	collectFields(n.ElseList, seen)
}
