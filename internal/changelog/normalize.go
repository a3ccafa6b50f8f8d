package changelog

import (
	"bytes"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const (
	paragraphDelimiter = "\n\n"
	imageMarker        = "!["
	commentOpen        = "<!--"
	commentClose       = "-->"
)

// Normalizer trims a pull request body down to its lead paragraph (plus a
// following screenshot paragraph) and renders it to sanitized HTML.
// A Normalizer is safe for concurrent use.
type Normalizer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewNormalizer builds a Normalizer. Raw HTML in the markdown source is
// passed through by the renderer; the UGC sanitizer decides what survives.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Table),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Normalize returns the display HTML for body.
func (n *Normalizer) Normalize(body string) string {
	lead := LeadParagraphs(body)
	if lead == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := n.md.Convert([]byte(lead), &buf); err != nil {
		return "<p>" + html.EscapeString(lead) + "</p>"
	}
	return strings.TrimSpace(n.policy.Sanitize(buf.String()))
}

// LeadParagraphs keeps the first non-empty paragraph of body and the second
// one only when it embeds an image. Paragraphs holding nothing but HTML
// comments (pull request templates) count as empty.
func LeadParagraphs(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")

	paragraphs := make([]string, 0, 2)
	for _, p := range strings.Split(body, paragraphDelimiter) {
		if strings.TrimSpace(stripComments(p)) == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
		if len(paragraphs) == 2 {
			break
		}
	}
	if len(paragraphs) == 0 {
		return ""
	}

	kept := paragraphs[:1]
	if len(paragraphs) > 1 && strings.Contains(paragraphs[1], imageMarker) {
		kept = paragraphs
	}
	return strings.Join(kept, paragraphDelimiter)
}

func stripComments(s string) string {
	for {
		start := strings.Index(s, commentOpen)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start+len(commentOpen):], commentClose)
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+len(commentOpen)+end+len(commentClose):]
	}
}

// Excerpt extracts the plain text and the first image source from rendered
// body HTML.
func Excerpt(body string) (text, imageURL string) {
	if strings.TrimSpace(body) == "" {
		return "", ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", ""
	}
	text = strings.Join(strings.Fields(doc.Text()), " ")
	if src, ok := doc.Find("img").First().Attr("src"); ok {
		imageURL = strings.TrimSpace(src)
	}
	return text, imageURL
}
