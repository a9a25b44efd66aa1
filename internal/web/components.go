package web

import (
	"fmt"
	"html"
	"strings"

	"github.com/SimonWaldherr/sqlmystery/internal/exporter"
	"github.com/SimonWaldherr/sqlmystery/internal/lesson"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
)

type component interface {
	HTML() string
}

type heroComponent struct {
	Title string
	Image *lesson.Image
}

func (c heroComponent) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<section class="component hero">`)
	sb.WriteString(`<h1>` + html.EscapeString(c.Title) + `</h1>`)
	if c.Image != nil {
		sb.WriteString(imageHTML(*c.Image, "hero-image"))
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

func imageHTML(img lesson.Image, class string) string {
	var sb strings.Builder
	sb.WriteString(`<figure class="` + class + `">`)
	sb.WriteString(`<img src="/assets/` + html.EscapeString(img.Src) + `" alt="` + html.EscapeString(img.Caption) + `"`)
	if img.Width > 0 {
		sb.WriteString(fmt.Sprintf(` width="%d"`, img.Width))
	}
	sb.WriteString(` />`)
	if img.Caption != "" {
		sb.WriteString(`<figcaption>` + html.EscapeString(img.Caption) + `</figcaption>`)
	}
	sb.WriteString(`</figure>`)
	return sb.String()
}

// paragraphs splits copy on blank lines.
func paragraphs(body string) string {
	var sb strings.Builder
	for _, p := range strings.Split(strings.TrimSpace(body), "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sb.WriteString(`<p>` + strings.ReplaceAll(html.EscapeString(p), "\n", "<br />") + `</p>`)
	}
	return sb.String()
}

type textComponent struct {
	Heading string
	Body    string
	Image   *lesson.Image
}

func (c textComponent) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<section class="component text">`)
	if c.Heading != "" {
		sb.WriteString(`<h2>` + html.EscapeString(c.Heading) + `</h2>`)
	}
	sb.WriteString(paragraphs(c.Body))
	if c.Image != nil {
		sb.WriteString(imageHTML(*c.Image, "figure"))
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

type headingComponent struct {
	Text string
}

func (c headingComponent) HTML() string {
	return `<h2 class="section-heading">` + html.EscapeString(c.Text) + `</h2>`
}

type alertComponent struct {
	Level   string // "success", "error", "info"
	Message string
}

func (c alertComponent) HTML() string {
	return `<div class="alert alert-` + c.Level + `" role="status">` + html.EscapeString(c.Message) + `</div>`
}

type tableComponent struct {
	Columns []string
	Rows    [][]string
	Note    string
}

func (c tableComponent) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<div class="table-wrapper"><table><thead><tr>`)
	for _, col := range c.Columns {
		sb.WriteString(`<th>` + html.EscapeString(col) + `</th>`)
	}
	sb.WriteString(`</tr></thead><tbody>`)
	for _, row := range c.Rows {
		sb.WriteString(`<tr>`)
		for _, v := range row {
			sb.WriteString(`<td>` + html.EscapeString(v) + `</td>`)
		}
		sb.WriteString(`</tr>`)
	}
	sb.WriteString(`</tbody></table></div>`)
	if c.Note != "" {
		sb.WriteString(`<div class="table-note">` + html.EscapeString(c.Note) + `</div>`)
	}
	return sb.String()
}

// outcomeComponent projects an Outcome onto the page: a table, the
// "no rows" message or the error text.
func outcomeComponent(out query.Outcome, msgs lesson.Messages) component {
	switch out.Kind {
	case query.Table:
		rows := make([][]string, len(out.Rows))
		for i, r := range out.Rows {
			cells := make([]string, len(r))
			for j, v := range r {
				if v == nil {
					cells[j] = "NULL"
					continue
				}
				cells[j] = exporter.ValueToString(v)
			}
			rows[i] = cells
		}
		tc := tableComponent{Columns: out.Columns, Rows: rows}
		if out.Truncated {
			tc.Note = fmt.Sprintf("Showing the first %d rows.", len(rows))
		} else {
			tc.Note = fmt.Sprintf("%d rows", len(rows))
		}
		return tc
	case query.Empty:
		return alertComponent{Level: "info", Message: msgs.NoRows}
	default:
		return alertComponent{Level: "error", Message: msgs.ErrorPrefix + out.Reason}
	}
}

type stepComponent struct {
	Step   lesson.Step
	Text   string
	Result component
}

func (c stepComponent) HTML() string {
	id := html.EscapeString(c.Step.ID)
	var sb strings.Builder
	sb.WriteString(`<section class="component step" id="step-` + id + `">`)
	if c.Step.Heading != "" {
		sb.WriteString(`<h2>` + html.EscapeString(c.Step.Heading) + `</h2>`)
	}
	if c.Step.Prompt != "" {
		sb.WriteString(`<label for="sql-` + id + `">` + paragraphs(c.Step.Prompt) + `</label>`)
	}
	sb.WriteString(`<textarea id="sql-` + id + `" name="sql_` + id + `" rows="6" spellcheck="false">`)
	sb.WriteString(html.EscapeString(c.Text))
	sb.WriteString(`</textarea>`)
	sb.WriteString(`<button type="submit" formaction="/run#step-` + id + `" name="step" value="` + id + `">`)
	sb.WriteString(html.EscapeString(c.Step.Label) + `</button>`)
	if c.Result != nil {
		sb.WriteString(`<div class="result">` + c.Result.HTML() + `</div>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

type checkpointComponent struct {
	Checkpoint lesson.Checkpoint
	Answer     string
	Result     component
}

func (c checkpointComponent) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<section class="component checkpoint" id="checkpoint">`)
	if c.Checkpoint.Heading != "" {
		sb.WriteString(`<h2>` + html.EscapeString(c.Checkpoint.Heading) + `</h2>`)
	}
	sb.WriteString(`<label for="answer">` + paragraphs(c.Checkpoint.Prompt) + `</label>`)
	sb.WriteString(`<input type="text" id="answer" name="answer" value="` + html.EscapeString(c.Answer) + `" />`)
	sb.WriteString(`<div class="buttons">`)
	sb.WriteString(`<button type="submit" formaction="/check#checkpoint">` + html.EscapeString(c.Checkpoint.CheckLabel) + `</button>`)
	sb.WriteString(`<button type="submit" formaction="/solution#checkpoint" class="secondary">` + html.EscapeString(c.Checkpoint.RevealLabel) + `</button>`)
	sb.WriteString(`</div>`)
	if c.Result != nil {
		sb.WriteString(`<div class="result">` + c.Result.HTML() + `</div>`)
	}
	sb.WriteString(`</section>`)
	return sb.String()
}

type solutionComponent struct {
	Intro string
	Field string
	Value string
}

func (c solutionComponent) HTML() string {
	return `<div class="solution"><p>` + html.EscapeString(c.Intro) + `</p>` +
		`<pre>{"` + html.EscapeString(c.Field) + `": "` + html.EscapeString(c.Value) + `"}</pre></div>`
}
