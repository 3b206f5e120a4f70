// internal/evaluate/trajectory.go
package evaluate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/webgym/internal/agent"
)

// Record is one line of a trajectory file: a single environment step taken in
// an episode.
type Record struct {
	EpisodeID  string          `json:"episode_id"`
	Env        string          `json:"env"`
	Task       string          `json:"task"`
	Step       int             `json:"step"`
	Action     string          `json:"action"`
	Args       map[string]any  `json:"args"`
	Reward     float64         `json:"reward"`
	Terminated bool            `json:"terminated"`
	Truncated  bool            `json:"truncated"`
	Thoughts   *agent.Thoughts `json:"thoughts,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Episode groups the records of one episode id in file order.
type Episode struct {
	ID      string
	Task    string
	Records []Record
}

// Steps normalizes the episode's actions.
func (e Episode) Steps() []Step {
	steps := make([]Step, 0, len(e.Records))
	for _, r := range e.Records {
		steps = append(steps, Step{Name: r.Action, Args: r.Args})
	}
	return steps
}

// Return is the sum of the episode's rewards.
func (e Episode) Return() float64 {
	var total float64
	for _, r := range e.Records {
		total += r.Reward
	}
	return total
}

// RecordWriter writes records as JSON lines. It is safe for concurrent use.
type RecordWriter struct {
	mu  sync.Mutex
	enc *jsoniter.Encoder
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{enc: json.NewEncoder(w)}
}

func (w *RecordWriter) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write trajectory record: %w", err)
	}
	return nil
}

// ReadEpisodes decodes JSON lines from r and groups them by episode id in order
// of first appearance. Blank lines are skipped.
func ReadEpisodes(r io.Reader) ([]Episode, error) {
	var episodes []Episode
	index := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		i, ok := index[rec.EpisodeID]
		if !ok {
			i = len(episodes)
			index[rec.EpisodeID] = i
			episodes = append(episodes, Episode{ID: rec.EpisodeID, Task: rec.Task})
		}
		episodes[i].Records = append(episodes[i].Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trajectory: %w", err)
	}
	return episodes, nil
}

// ReadEpisodesFile opens path and reads its episodes.
func ReadEpisodesFile(path string) ([]Episode, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("trajectory file %s does not exist: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open trajectory file %s: %w", path, err)
	}
	defer f.Close()
	episodes, err := ReadEpisodes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return episodes, nil
}
