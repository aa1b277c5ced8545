package app

import (
	"testing"

	"forum-quiz-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScorePolicy(t *testing.T) {
	q := domain.Question{Hints: []string{"a", "b", "c"}, HintsRevealed: 2}

	cases := []struct {
		name   string
		points int
		want   int
	}{
		{"", 1, 1},
		{"fixed", 2, 2},
		{"fixed", 0, 1},
		{"hint_weighted", 1, 2},
	}
	for _, tc := range cases {
		p, err := NewScorePolicy(tc.name, tc.points)
		require.NoError(t, err)
		assert.Equal(t, tc.want, p.Points(q), "policy %q points %d", tc.name, tc.points)
	}

	_, err := NewScorePolicy("random", 1)
	assert.Error(t, err)
}

func TestHintWeightedNeverBelowBase(t *testing.T) {
	q := domain.Question{Hints: []string{"a"}, HintsRevealed: 3}
	assert.Equal(t, 4, HintWeighted{Base: 4}.Points(q))
}
