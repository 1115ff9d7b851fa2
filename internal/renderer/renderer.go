package renderer

import (
	"bytes"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/janiskrasemann/forecast/internal/aggregator"
	"github.com/janiskrasemann/forecast/internal/reporter"
)

type DigestData struct {
	Date     string
	Edition  int
	Duration time.Duration
	Entries  []reporter.Entry
}

type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

type Renderer struct {
	htmlTpl *htmltpl.Template
	textTpl *texttpl.Template
}

func New(htmlTemplate, textTemplate string) (*Renderer, error) {
	funcs := map[string]any{
		"line":      reporter.Format,
		"forecasts": byStatus(reporter.StatusReported),
		"noData":    byStatus(reporter.StatusNoData),
		"failures":  byStatus(reporter.StatusFailed),
		"temp":      formatTemp,
		"humidity":  formatHumidity,
	}

	htmlFuncs := htmltpl.FuncMap{"markdown": renderMarkdown}
	for k, v := range funcs {
		htmlFuncs[k] = v
	}

	ht, err := htmltpl.New("digest.html").Funcs(htmlFuncs).Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML template: %w", err)
	}

	tt, err := texttpl.New("digest.txt").Funcs(texttpl.FuncMap(funcs)).Parse(textTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing text template: %w", err)
	}

	return &Renderer{htmlTpl: ht, textTpl: tt}, nil
}

func (r *Renderer) Render(run *aggregator.Run, edition int) (*RenderedEmail, error) {
	started := run.Started
	if started.IsZero() {
		started = time.Now()
	}
	data := DigestData{
		Date:     started.Format("Monday, January 2, 2006 15:04"),
		Edition:  edition,
		Duration: run.Duration.Round(time.Millisecond),
		Entries:  run.Entries,
	}

	var htmlBuf bytes.Buffer
	if err := r.htmlTpl.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("rendering HTML: %w", err)
	}

	var textBuf bytes.Buffer
	if err := r.textTpl.Execute(&textBuf, data); err != nil {
		return nil, fmt.Errorf("rendering text: %w", err)
	}

	return &RenderedEmail{
		Subject: fmt.Sprintf("Forecast digest #%d: %d of %d sources", edition,
			run.Count(reporter.StatusReported), len(run.Entries)),
		HTML: htmlBuf.String(),
		Text: textBuf.String(),
	}, nil
}

func byStatus(s reporter.Status) func([]reporter.Entry) []reporter.Entry {
	return func(entries []reporter.Entry) []reporter.Entry {
		var out []reporter.Entry
		for _, e := range entries {
			if e.Status == s {
				out = append(out, e)
			}
		}
		return out
	}
}

func formatTemp(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.1f°C", *v)
}

func formatHumidity(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.0f%%", *v)
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// renderMarkdown converts free-form text (decoder descriptions, failure
// messages) to HTML. Raw HTML in the input is omitted by goldmark.
func renderMarkdown(s string) htmltpl.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(s), &buf); err != nil {
		return htmltpl.HTML(htmltpl.HTMLEscapeString(s))
	}
	return htmltpl.HTML(buf.String())
}
