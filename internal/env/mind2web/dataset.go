// File: internal/env/mind2web/dataset.go
package mind2web

import (
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"

	"github.com/xkilldash9x/webgym/internal/env"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Operation is the recorded user operation of one step.
type Operation struct {
	Op         string `json:"op"`
	OriginalOp string `json:"original_op"`
	Value      string `json:"value"`
}

// Candidate is a UI element that an operation may target. Actions also produce a
// Candidate, carrying the typed text or selected option as Value.
type Candidate struct {
	BackendNodeID int    `json:"backend_node_id"`
	Tag           string `json:"tag"`
	Attributes    any    `json:"attributes,omitempty"`
	Value         string `json:"value,omitempty"`
}

// UnmarshalJSON accepts backend_node_id as a number or a numeric string; the
// published datasets use both.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		BackendNodeID any    `json:"backend_node_id"`
		Tag           string `json:"tag"`
		Attributes    any    `json:"attributes"`
		Value         string `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := cast.ToIntE(raw.BackendNodeID)
	if err != nil {
		return fmt.Errorf("candidate backend_node_id %v: %w", raw.BackendNodeID, err)
	}
	*c = Candidate{BackendNodeID: id, Tag: raw.Tag, Attributes: raw.Attributes, Value: raw.Value}
	return nil
}

// StepRecord is one recorded step of a scenario.
type StepRecord struct {
	ActionUID     string      `json:"action_uid"`
	RawHTML       string      `json:"raw_html"`
	CleanedHTML   string      `json:"cleaned_html"`
	Operation     Operation   `json:"operation"`
	PosCandidates []Candidate `json:"pos_candidates"`
	NegCandidates []Candidate `json:"neg_candidates"`
}

// Candidates merges negative then positive candidates.
func (s StepRecord) Candidates() []Candidate {
	out := make([]Candidate, 0, len(s.NegCandidates)+len(s.PosCandidates))
	out = append(out, s.NegCandidates...)
	return append(out, s.PosCandidates...)
}

// GroundTruth is the target the step is scored against: the first positive
// candidate and the recorded operation value. ok is false when the step has no
// positive candidate.
func (s StepRecord) GroundTruth() (truth Candidate, ok bool) {
	truth.Value = s.Operation.Value
	if len(s.PosCandidates) == 0 {
		return truth, false
	}
	truth.BackendNodeID = s.PosCandidates[0].BackendNodeID
	truth.Tag = s.PosCandidates[0].Tag
	return truth, true
}

// Scenario is one human demonstration.
type Scenario struct {
	AnnotationID  string       `json:"annotation_id"`
	ConfirmedTask string       `json:"confirmed_task"`
	Website       string       `json:"website"`
	Domain        string       `json:"domain"`
	Subdomain     string       `json:"subdomain"`
	ActionReprs   []string     `json:"action_reprs"`
	Actions       []StepRecord `json:"actions"`
}

// Len is the number of recorded steps.
func (s *Scenario) Len() int { return len(s.Actions) }

// Observation renders step i. Out-of-range steps yield an empty observation.
func (s *Scenario) Observation(i int) env.Observation {
	if i < 0 || i >= len(s.Actions) {
		return env.Observation{}
	}
	step := s.Actions[i]
	repr := ""
	if i < len(s.ActionReprs) {
		repr = s.ActionReprs[i]
	}
	return env.Observation{
		"action_repr":  repr,
		"raw_html":     step.RawHTML,
		"cleaned_html": step.CleanedHTML,
		"candidates":   step.Candidates(),
	}
}

// Dataset holds every scenario of a file, indexed by annotation id, in file order.
type Dataset struct {
	scenarios []*Scenario
	index     map[string]*Scenario
}

// LoadDataset parses the whole file eagerly.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", env.ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	var scenarios []*Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", path, err)
	}
	return NewDataset(scenarios)
}

// NewDataset indexes already-decoded scenarios. Annotation ids must be unique and
// non-empty.
func NewDataset(scenarios []*Scenario) (*Dataset, error) {
	d := &Dataset{index: make(map[string]*Scenario, len(scenarios))}
	for i, s := range scenarios {
		if s == nil {
			return nil, fmt.Errorf("scenario %d is null", i)
		}
		if s.AnnotationID == "" {
			return nil, fmt.Errorf("scenario %d has no annotation_id", i)
		}
		if _, dup := d.index[s.AnnotationID]; dup {
			return nil, fmt.Errorf("duplicate annotation_id %s", s.AnnotationID)
		}
		d.index[s.AnnotationID] = s
		d.scenarios = append(d.scenarios, s)
	}
	return d, nil
}

func (d *Dataset) Len() int { return len(d.scenarios) }

// IDs returns the annotation ids in file order.
func (d *Dataset) IDs() []string {
	ids := make([]string, 0, len(d.scenarios))
	for _, s := range d.scenarios {
		ids = append(ids, s.AnnotationID)
	}
	return ids
}

// Get returns the scenario with the given id; an empty id selects the first one.
func (d *Dataset) Get(annotationID string) (*Scenario, error) {
	if annotationID == "" {
		if len(d.scenarios) == 0 {
			return nil, fmt.Errorf("%w: dataset is empty", env.ErrScenarioNotFound)
		}
		return d.scenarios[0], nil
	}
	s, ok := d.index[annotationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in available annotation ids %v", env.ErrScenarioNotFound, annotationID, d.IDs())
	}
	return s, nil
}

// FindByTask returns the first scenario whose confirmed task equals task.
func (d *Dataset) FindByTask(task string) (*Scenario, bool) {
	for _, s := range d.scenarios {
		if s.ConfirmedTask == task {
			return s, true
		}
	}
	return nil, false
}
