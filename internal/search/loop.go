package search

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Objective evaluates one trial and returns its score. Lower is better.
type Objective func(Trial) (float64, error)

// Loop drives a strategy against an objective for a fixed trial budget.
type Loop struct {
	strategy  Strategy
	objective Objective
	log       *zap.SugaredLogger
}

// NewLoop builds a search loop.
func NewLoop(strategy Strategy, objective Objective, log *zap.SugaredLogger) *Loop {
	return &Loop{strategy: strategy, objective: objective, log: log}
}

// Run evaluates budget trials and returns the best one. A trial whose
// objective fails or reports a non-finite score is recorded with an infinite
// score and the search continues; Run errors only when every trial failed.
func (l *Loop) Run(budget int) (Trial, error) {
	if budget < 1 {
		return Trial{}, errors.Errorf("search: budget %d < 1", budget)
	}

	best := Trial{Score: math.Inf(1)}
	succeeded := 0

	for i := 0; i < budget; i++ {
		trial := l.strategy.Propose()

		score, err := l.objective(trial)
		switch {
		case err != nil:
			score = math.Inf(1)
			l.log.Warnw("trial failed",
				"trial", trial.ID,
				"hidden", trial.HiddenSizes,
				"optimizer", trial.Optimizer,
				"lr", trial.LR,
				"error", err,
			)
		case math.IsNaN(score) || math.IsInf(score, 0):
			// diverged training reports NaN without an error; treat it as failed
			score = math.Inf(1)
			l.log.Warnw("trial diverged",
				"trial", trial.ID,
				"hidden", trial.HiddenSizes,
				"optimizer", trial.Optimizer,
				"lr", trial.LR,
			)
		default:
			succeeded++
			l.log.Infow("trial finished",
				"trial", trial.ID,
				"hidden", trial.HiddenSizes,
				"optimizer", trial.Optimizer,
				"lr", trial.LR,
				"score", score,
			)
		}

		trial.Score = score
		l.strategy.Observe(trial, score)

		if score < best.Score {
			best = trial
			l.log.Infow("new best trial", "trial", trial.ID, "score", score)
		}
	}

	if succeeded == 0 {
		return Trial{}, errors.Errorf("search: all %d trials failed", budget)
	}
	return best, nil
}
