// internal/evaluate/lcs.go
package evaluate

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Step is one normalized trajectory step: an action name and its arguments.
type Step struct {
	Name string         `json:"name"`
	Args map[string]any `json:"input_action_args"`
}

// Key renders the step canonically. Names compare case-insensitively and
// argument maps by their sorted-key JSON.
func (s Step) Key() string {
	args := "{}"
	if len(s.Args) > 0 {
		if b, err := json.Marshal(s.Args); err == nil {
			args = string(b)
		}
	}
	return strings.ToUpper(s.Name) + " " + args
}

// EqualFunc decides whether two steps match.
type EqualFunc func(a, b Step) bool

// StepsEqual matches on name and arguments.
func StepsEqual(a, b Step) bool { return a.Key() == b.Key() }

// NamesEqual matches on the action name only.
func NamesEqual(a, b Step) bool { return strings.EqualFold(a.Name, b.Name) }

// LCSLength is the length of the longest common subsequence of a and b.
func LCSLength(a, b []Step, eq EqualFunc) int {
	if eq == nil {
		eq = StepsEqual
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			switch {
			case eq(a[i], b[j]):
				cur[j+1] = prev[j] + 1
			case cur[j] > prev[j+1]:
				cur[j+1] = cur[j]
			default:
				cur[j+1] = prev[j+1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// LCSSimilarity is len(LCS(a, b)) / min(len(a), len(b)), and 0 when either
// trajectory is empty.
func LCSSimilarity(a, b []Step, eq EqualFunc) float64 {
	shorter := min(len(a), len(b))
	if shorter == 0 {
		return 0
	}
	return float64(LCSLength(a, b, eq)) / float64(shorter)
}
