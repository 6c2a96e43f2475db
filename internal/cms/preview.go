package cms

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/ids"
)

//go:embed preview.html
var previewSource string

var previewTmpl = template.Must(template.New("preview").Parse(previewSource))

// Preview is a rendered standalone page.
type Preview struct {
	ID        string
	HTML      []byte
	CreatedAt time.Time
	// Location is where the opener made the page available.
	Location string
}

// Opener makes a rendered preview visible to the user in a new browsing
// context. Failing to do so is reported as PREVIEW_BLOCKED.
type Opener interface {
	Open(ctx context.Context, p *Preview) (location string, err error)
}

type previewData struct {
	Title    string
	Subtitle string
	Body     template.HTML
	Footer   string
	Style    template.CSS
	Titles   []Block
	Contents []template.HTML
	Images   []Image
}

// GeneratePreview renders doc as a self-contained HTML page. Body text and
// content blocks are Markdown; raw HTML in them is not passed through.
func GeneratePreview(doc Document, now time.Time) (*Preview, error) {
	s := doc.Settings.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	data := previewData{
		Title:    s.Title,
		Subtitle: s.Subtitle,
		Body:     renderMarkdown(s.BodyText),
		Footer:   s.FooterText,
		Style:    pageStyle(s),
		Titles:   doc.Titles,
		Images:   doc.Images,
	}
	for _, c := range doc.Contents {
		data.Contents = append(data.Contents, renderMarkdown(c.Text))
	}

	var buf bytes.Buffer
	if err := previewTmpl.Execute(&buf, data); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("render preview: %w", err))
	}

	id, err := ids.New(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &Preview{ID: id, HTML: buf.Bytes(), CreatedAt: now}, nil
}

// pageStyle builds the body rule from validated settings.
func pageStyle(s Settings) template.CSS {
	return template.CSS(fmt.Sprintf(
		"background-color: %s; color: %s; font-family: %s, sans-serif; font-size: %dpx;",
		s.BackgroundColor, s.TextColor, s.FontFamily, s.FontSize,
	))
}

func renderMarkdown(md string) template.HTML {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
