package app

import (
	"fmt"

	"forum-quiz-bot/internal/domain"
)

// ScorePolicy decides how many points a correct answer is worth.
type ScorePolicy interface {
	Points(q domain.Question) int
}

// FixedPoints credits the same amount for every question.
type FixedPoints int

func (p FixedPoints) Points(domain.Question) int { return int(p) }

// HintWeighted credits Base plus one point for every hint left unrevealed.
type HintWeighted struct {
	Base int
}

func (p HintWeighted) Points(q domain.Question) int {
	unrevealed := len(q.Hints) - q.HintsRevealed
	if unrevealed < 0 {
		unrevealed = 0
	}
	return p.Base + unrevealed
}

// NewScorePolicy maps the configured scoring name to a policy.
func NewScorePolicy(name string, points int) (ScorePolicy, error) {
	if points < 1 {
		points = 1
	}
	switch name {
	case "", "fixed":
		return FixedPoints(points), nil
	case "hint_weighted":
		return HintWeighted{Base: points}, nil
	}
	return nil, fmt.Errorf("unknown scoring policy %q", name)
}
