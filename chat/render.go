package chat

import (
	"html"
	"html/template"
	"strings"

	"chatwidget/models"
)

// RenderText escapes text for HTML and then turns newlines into <br>.
// Escaping happens first so provider or user text can never inject markup.
func RenderText(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// RenderTurn renders a turn as the transcript element the widget appends
func RenderTurn(turn models.Turn) template.HTML {
	return template.HTML(`<div class="` + turn.CSSClass() + `">` + RenderText(turn.Text) + `</div>`)
}

// RenderedTurn is a turn together with its HTML fragment
type RenderedTurn struct {
	Sender models.Sender `json:"sender"`
	Text   string        `json:"text"`
	HTML   template.HTML `json:"html"`
}

// RenderTurns renders turns in order
func RenderTurns(turns []models.Turn) []RenderedTurn {
	out := make([]RenderedTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, RenderedTurn{Sender: t.Sender, Text: t.Text, HTML: RenderTurn(t)})
	}
	return out
}
