// Package render turns quiz outcomes into forum post markup.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"forum-quiz-bot/internal/domain"
)

// Kind names a reply variant.
type Kind string

const (
	KindHintCard                  Kind = "hint_card"
	KindJokeConsolation           Kind = "joke_consolation"
	KindCorrectAnswerAnnouncement Kind = "correct_answer_announcement"
)

// Reply is one of HintCard, JokeConsolation or CorrectAnswerAnnouncement.
type Reply interface {
	Kind() Kind
}

// HintCard announces the next hint of the open question.
type HintCard struct {
	Hint string
}

// JokeConsolation is posted after a wrong guess once hints have run out.
type JokeConsolation struct {
	Joke string
}

// CorrectAnswerAnnouncement congratulates the winner, shows the leaderboard and
// asks the winner for the next category.
type CorrectAnswerAnnouncement struct {
	Username     string
	QuestionText string
	Leaderboard  []domain.LeaderboardEntry
}

func (HintCard) Kind() Kind                  { return KindHintCard }
func (JokeConsolation) Kind() Kind           { return KindJokeConsolation }
func (CorrectAnswerAnnouncement) Kind() Kind { return KindCorrectAnswerAnnouncement }

// rankTiers styles the first positions of the leaderboard; index is rank-1.
var rankTiers = []template.CSS{
	"#e67e22",
	"#7f8c8d",
	"#330000",
}

const emoticonURL = "https://forum.wrestling.pl/uploads/emoticons/leo.png"

var nextCategoryExamples = []string{
	"Historia konkretnej federacji",
	"Biografia wybranego wrestlera",
	"Konkretna era wrestlingu",
	"Gale pay-per-view",
	"Stajnie i tag teamy",
}

var templates = template.Must(template.New("hint").Parse(`<p style="text-align: center;">
	<span style="font-size:22px;"><strong>Podpowiedź</strong></span><br>
	&nbsp;
</p>
<p>{{.Hint}}</p>
`))

func init() {
	template.Must(templates.New("joke").Parse(`<p style="text-align: justify;">
	Niestety nie udzieliłeś poprawnej odpowiedzi. Na pocieszenie opowiadam kawał:
</p>
<p style="text-align: justify;">
	{{.Joke}}&nbsp;<img alt=":leo:" data-emoticon="true" loading="lazy" src="{{.Emoticon}}" style="width: 40px; height: auto;" title=":leo:">
</p>
`))

	template.Must(templates.New("correct").Parse(`<p style="text-align: justify;">
	Gratulacje {{.Username}}! Poprawna odpowiedź na pytanie dotyczyła "{{.QuestionText}}".
</p>
<p>&nbsp;</p>
<table style="border-collapse: collapse; margin-left: auto; margin-right: auto;">
	<thead>
		<tr><th>User</th><th>Punkty</th></tr>
	</thead>
	<tbody>
{{- range .Rows}}
		<tr><td>{{if .Color}}<strong><span style="color:{{.Color}};">{{.Name}}</span></strong>{{else}}{{.Name}}{{end}}</td><td>Liczba punktów {{.Score}}</td></tr>
{{- end}}
	</tbody>
</table>
<p>&nbsp;</p>
<p style="text-align: justify;">
	<strong>Podaj kategorię następnego pytania!</strong><br>
	Możesz wybrać dowolną kategorię związaną z wrestlingiem, np.:<br>
{{- range .Examples}}
	- {{.}}<br>
{{- end}}
	- i wiele innych!
</p>
`))
}

type row struct {
	Name  string
	Score int
	Color template.CSS
}

// Render produces the markup for reply. It has no state and performs no I/O.
func Render(reply Reply) (string, error) {
	var (
		name string
		data any
	)
	switch r := reply.(type) {
	case HintCard:
		name, data = "hint", r
	case JokeConsolation:
		name, data = "joke", struct {
			Joke     string
			Emoticon string
		}{r.Joke, emoticonURL}
	case CorrectAnswerAnnouncement:
		name, data = "correct", struct {
			Username     string
			QuestionText string
			Rows         []row
			Examples     []string
		}{r.Username, r.QuestionText, leaderboardRows(r.Leaderboard), nextCategoryExamples}
	default:
		return "", fmt.Errorf("render: unsupported reply %T", reply)
	}

	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", reply.Kind(), err)
	}
	return b.String(), nil
}

func leaderboardRows(entries []domain.LeaderboardEntry) []row {
	rows := make([]row, 0, len(entries))
	for i, e := range entries {
		r := row{Name: e.UserName, Score: e.Score}
		if i < len(rankTiers) {
			r.Color = rankTiers[i]
		}
		rows = append(rows, r)
	}
	return rows
}
