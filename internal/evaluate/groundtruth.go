// internal/evaluate/groundtruth.go
package evaluate

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/webgym/internal/agent"
	"github.com/xkilldash9x/webgym/internal/env"
	"github.com/xkilldash9x/webgym/internal/env/mind2web"
)

// Ground truth operation names.
const (
	OpClick  = "CLICK"
	OpType   = "TYPE"
	OpSelect = "SELECT"
)

// ExtractGroundTruth parses Mind2Web action representations such as
// "[textbox]  Search -> TYPE: milk" into steps. Hovers count as clicks.
// Representations without a known operation are skipped.
func ExtractGroundTruth(actionReprs []string) []Step {
	steps := make([]Step, 0, len(actionReprs))
	for _, repr := range actionReprs {
		if s, ok := parseRepr(repr); ok {
			steps = append(steps, s)
		}
	}
	return steps
}

func parseRepr(repr string) (Step, bool) {
	rest := repr
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end >= 0 {
			rest = rest[end+1:]
		}
	}
	target, op, found := cutLast(rest, "->")
	if !found {
		return Step{}, false
	}
	target = strings.TrimSpace(target)
	op = strings.TrimSpace(op)

	args := map[string]any{"target_element": target}
	switch {
	case strings.HasPrefix(op, OpClick), strings.HasPrefix(strings.ToUpper(op), "HOVER"):
		return Step{Name: OpClick, Args: args}, true
	case strings.HasPrefix(op, OpType):
		args["text"] = operand(op, OpType)
		return Step{Name: OpType, Args: args}, true
	case strings.HasPrefix(op, OpSelect):
		args["option"] = operand(op, OpSelect)
		return Step{Name: OpSelect, Args: args}, true
	default:
		return Step{}, false
	}
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// operand strips "OP:" and the following space from op.
func operand(op, name string) string {
	v := strings.TrimPrefix(op, name)
	v = strings.TrimPrefix(v, ":")
	return strings.TrimPrefix(v, " ")
}

// FromTrajectory keeps the action part of agent records.
func FromTrajectory(records []agent.Output) []Step {
	steps := make([]Step, 0, len(records))
	for _, r := range records {
		steps = append(steps, Step{Name: r.Action.Name, Args: r.Action.InputActionArgs})
	}
	return steps
}

// GroundTruthForTask finds the scenario whose confirmed task is task and
// extracts its ground truth steps.
func GroundTruthForTask(ds *mind2web.Dataset, task string) ([]Step, error) {
	if ds == nil {
		return nil, fmt.Errorf("no dataset given")
	}
	s, ok := ds.FindByTask(task)
	if !ok {
		return nil, fmt.Errorf("%w: no scenario with confirmed task %q", env.ErrScenarioNotFound, task)
	}
	return ExtractGroundTruth(s.ActionReprs), nil
}
