// Package cms implements the three-step landing page editor and its HTML
// preview.
package cms

import (
	"regexp"
	"strings"

	"github.com/hpungsan/funnelmkt/internal/errors"
)

// Settings are the scalar fields of the page being edited.
type Settings struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	BodyText        string `json:"body_text"`
	FooterText      string `json:"footer_text"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	FontFamily      string `json:"font_family"`
	FontSize        int    `json:"font_size"`
}

const (
	DefaultBackgroundColor = "#ffffff"
	DefaultTextColor       = "#1f2937"
	DefaultFontFamily      = "Arial"
	DefaultFontSize        = 16

	MinFontSize = 8
	MaxFontSize = 72
)

// FontFamilies are offered in the editor; any family matching fontPattern
// is accepted.
var FontFamilies = []string{"Arial", "Georgia", "Helvetica", "Times New Roman", "Verdana", "Courier New"}

var (
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	fontPattern  = regexp.MustCompile(`^[A-Za-z0-9 ,\-]{1,64}$`)
)

// DefaultSettings is the blank page.
func DefaultSettings() Settings {
	return Settings{
		BackgroundColor: DefaultBackgroundColor,
		TextColor:       DefaultTextColor,
		FontFamily:      DefaultFontFamily,
		FontSize:        DefaultFontSize,
	}
}

// normalize trims text and fills empty style fields with defaults.
func (s Settings) normalize() Settings {
	s.Title = strings.TrimSpace(s.Title)
	s.Subtitle = strings.TrimSpace(s.Subtitle)
	s.BodyText = strings.TrimSpace(s.BodyText)
	s.FooterText = strings.TrimSpace(s.FooterText)
	s.BackgroundColor = strings.TrimSpace(s.BackgroundColor)
	s.TextColor = strings.TrimSpace(s.TextColor)
	s.FontFamily = strings.TrimSpace(s.FontFamily)

	if s.BackgroundColor == "" {
		s.BackgroundColor = DefaultBackgroundColor
	}
	if s.TextColor == "" {
		s.TextColor = DefaultTextColor
	}
	if s.FontFamily == "" {
		s.FontFamily = DefaultFontFamily
	}
	if s.FontSize == 0 {
		s.FontSize = DefaultFontSize
	}
	return s
}

// Validate checks the style fields, which end up inside CSS.
func (s Settings) Validate() error {
	fields := make(map[string]string)
	if !colorPattern.MatchString(s.BackgroundColor) {
		fields["background_color"] = "must be a hex color like #ffffff"
	}
	if !colorPattern.MatchString(s.TextColor) {
		fields["text_color"] = "must be a hex color like #1f2937"
	}
	if !fontPattern.MatchString(s.FontFamily) {
		fields["font_family"] = "may only contain letters, digits, spaces, commas and hyphens"
	}
	if s.FontSize < MinFontSize || s.FontSize > MaxFontSize {
		fields["font_size"] = "must be between 8 and 72"
	}
	if len(fields) > 0 {
		return errors.NewValidationFailed(fields)
	}
	return nil
}

// Block is one ordered title or content entry.
type Block struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Image is an uploaded image. URL is where the preview loads it from.
type Image struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	URL         string `json:"url"`
}

// Document is everything the preview renders.
type Document struct {
	Settings Settings `json:"settings"`
	Titles   []Block  `json:"titles"`
	Contents []Block  `json:"contents"`
	Images   []Image  `json:"images"`
}
