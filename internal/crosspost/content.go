package crosspost

import (
	"bytes"
	"strings"
	"text/template"
)

const (
	// MaxWeight is the tweet limit in weighted characters.
	MaxWeight = 280
	urlWeight = 23
	ellipsis  = "…"

	DefaultLocale = "en"
)

// Post is the data a tweet template renders.
type Post struct {
	URL         string
	Title       string
	Description string
}

var templates = map[string]*template.Template{
	"en": template.Must(template.New("en").Parse(
		"New post: {{.Title}}\n\n{{.Description}}\n\n{{.URL}}")),
	"ja": template.Must(template.New("ja").Parse(
		"新しい記事を公開しました: {{.Title}}\n\n{{.Description}}\n\n{{.URL}}")),
}

// TemplateFor returns the template for locale, falling back to English.
func TemplateFor(locale string) *template.Template {
	if t, ok := templates[locale]; ok {
		return t
	}
	return templates[DefaultLocale]
}

// Weight counts s the way twitter-text does: links count as 23 and runes
// outside the Latin and general punctuation ranges count as 2.
func Weight(s string) int {
	total := 0
	for _, field := range strings.FieldsFunc(s, isSpace) {
		if isURL(field) {
			total += urlWeight
			continue
		}
		for _, r := range field {
			total += runeWeight(r)
		}
	}
	for _, r := range s {
		if isSpace(r) {
			total++
		}
	}
	return total
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func runeWeight(r rune) int {
	switch {
	case r <= 0x10FF,
		r >= 0x2000 && r <= 0x200D,
		r >= 0x2010 && r <= 0x201F,
		r >= 0x2032 && r <= 0x2037:
		return 1
	}
	return 2
}

// Ellipsis renders p with tmpl, shortening the description until the
// result fits MaxWeight. It returns "" when nothing fits.
func Ellipsis(tmpl *template.Template, p Post) (string, error) {
	out, err := render(tmpl, p)
	if err != nil || Weight(out) <= MaxWeight {
		return out, err
	}

	runes := []rune(p.Description)
	lo, hi := 0, len(runes)-1
	best := ""
	for lo <= hi {
		mid := (lo + hi) / 2
		p.Description = strings.TrimRight(string(runes[:mid]), " \n") + ellipsis
		s, err := render(tmpl, p)
		if err != nil {
			return "", err
		}
		if Weight(s) <= MaxWeight {
			best = s
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}

func render(tmpl *template.Template, p Post) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
