package render

import (
	"strings"
	"testing"

	"forum-quiz-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHintCard(t *testing.T) {
	out, err := Render(HintCard{Hint: "Wore red and yellow"})
	require.NoError(t, err)
	assert.Contains(t, out, "Podpowiedź")
	assert.Contains(t, out, "<p>Wore red and yellow</p>")
}

func TestRenderEscapesUserContent(t *testing.T) {
	out, err := Render(HintCard{Hint: `<script>alert(1)</script>`})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestRenderJokeConsolation(t *testing.T) {
	out, err := Render(JokeConsolation{Joke: "Why did the wrestler cross the ring?"})
	require.NoError(t, err)
	assert.Contains(t, out, "Na pocieszenie opowiadam kawał")
	assert.Contains(t, out, "Why did the wrestler cross the ring?")
	assert.Contains(t, out, `src="https://forum.wrestling.pl/uploads/emoticons/leo.png"`)
}

func TestRenderAnnouncementTiers(t *testing.T) {
	out, err := Render(CorrectAnswerAnnouncement{
		Username:     "macho",
		QuestionText: "Who slammed Andre?",
		Leaderboard: []domain.LeaderboardEntry{
			{UserName: "gold", Score: 9},
			{UserName: "silver", Score: 7},
			{UserName: "bronze", Score: 5},
			{UserName: "rest", Score: 1},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Gratulacje macho!")
	assert.Contains(t, out, "Who slammed Andre?")
	assert.Contains(t, out, `<span style="color:#e67e22;">gold</span>`)
	assert.Contains(t, out, `<span style="color:#7f8c8d;">silver</span>`)
	assert.Contains(t, out, `<span style="color:#330000;">bronze</span>`)
	assert.Contains(t, out, "<td>rest</td><td>Liczba punktów 1</td>")
	assert.Contains(t, out, "Podaj kategorię następnego pytania!")

	assert.Less(t, strings.Index(out, "gold"), strings.Index(out, "silver"))
	assert.Less(t, strings.Index(out, "silver"), strings.Index(out, "bronze"))
}

func TestRenderEmptyLeaderboard(t *testing.T) {
	out, err := Render(CorrectAnswerAnnouncement{Username: "solo", QuestionText: "q"})
	require.NoError(t, err)
	assert.NotContains(t, out, "<td>")
}
