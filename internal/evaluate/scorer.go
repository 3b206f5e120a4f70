// internal/evaluate/scorer.go
package evaluate

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/xkilldash9x/webgym/internal/env/mind2web"
)

// EpisodeScore is the LCS similarity of one recorded episode against the
// ground truth of its task.
type EpisodeScore struct {
	File       string  `json:"file"`
	EpisodeID  string  `json:"episode_id"`
	Task       string  `json:"task"`
	Steps      int     `json:"steps"`
	TruthSteps int     `json:"truth_steps"`
	LCSLength  int     `json:"lcs_length"`
	Similarity float64 `json:"similarity"`
	Return     float64 `json:"return"`
	SkipReason string  `json:"skip_reason,omitempty"`
}

// Skipped reports whether the episode could not be scored.
func (s EpisodeScore) Skipped() bool { return s.SkipReason != "" }

// Summary aggregates the scored episodes.
type Summary struct {
	Episodes int     `json:"episodes"`
	Skipped  int     `json:"skipped"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stddev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Summarize computes statistics over the similarities of scored episodes.
func Summarize(scores []EpisodeScore) Summary {
	values := make([]float64, 0, len(scores))
	sum := Summary{}
	for _, s := range scores {
		if s.Skipped() {
			sum.Skipped++
			continue
		}
		values = append(values, s.Similarity)
	}
	sum.Episodes = len(values)
	if len(values) == 0 {
		return sum
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	if math.IsNaN(sum.StdDev) {
		sum.StdDev = 0
	}
	sum.Min = floats.Min(values)
	sum.Max = floats.Max(values)
	return sum
}

// Scorer scores trajectory files against a Mind2Web dataset.
type Scorer struct {
	dataset     *mind2web.Dataset
	equal       EqualFunc
	concurrency int
	logger      *zap.Logger
}

func NewScorer(ds *mind2web.Dataset, equal EqualFunc, concurrency int, logger *zap.Logger) (*Scorer, error) {
	if ds == nil {
		return nil, fmt.Errorf("scorer requires a dataset")
	}
	if equal == nil {
		equal = StepsEqual
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{dataset: ds, equal: equal, concurrency: concurrency, logger: logger.Named("evaluate")}, nil
}

// ScoreEpisode compares one episode with the ground truth of its task. A task
// missing from the dataset yields a skipped score, not an error.
func (s *Scorer) ScoreEpisode(file string, ep Episode) EpisodeScore {
	steps := ep.Steps()
	score := EpisodeScore{File: file, EpisodeID: ep.ID, Task: ep.Task, Steps: len(steps), Return: ep.Return()}

	truth, err := GroundTruthForTask(s.dataset, ep.Task)
	if err != nil {
		s.logger.Warn("No ground truth for task.", zap.String("episode_id", ep.ID), zap.String("task", ep.Task))
		score.SkipReason = err.Error()
		return score
	}
	score.TruthSteps = len(truth)
	if len(steps) == 0 || len(truth) == 0 {
		score.SkipReason = "empty trajectory"
		return score
	}
	score.LCSLength = LCSLength(steps, truth, s.equal)
	score.Similarity = float64(score.LCSLength) / float64(min(len(steps), len(truth)))
	return score
}

// ScoreFiles reads and scores the files concurrently. Scores keep file order,
// then episode order within a file. The first read error cancels the rest.
func (s *Scorer) ScoreFiles(ctx context.Context, paths []string) ([]EpisodeScore, error) {
	results := make([][]EpisodeScore, len(paths))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			episodes, err := ReadEpisodesFile(path)
			if err != nil {
				return err
			}
			scores := make([]EpisodeScore, 0, len(episodes))
			for _, ep := range episodes {
				scores = append(scores, s.ScoreEpisode(path, ep))
			}
			s.logger.Debug("Scored trajectory file.", zap.String("file", path), zap.Int("episodes", len(episodes)))
			results[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []EpisodeScore
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
