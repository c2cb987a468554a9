package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
)

// MarkdownToPlain renders markdown into plain text for transports that only
// carry a text body.
func MarkdownToPlain(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	rendered := markdown.Render(p.Parse([]byte(md)), renderer)

	text, err := html2text.FromString(string(rendered), html2text.Options{
		OmitLinks: true,
		TextOnly:  true,
	})
	if err != nil {
		return strings.TrimSpace(md)
	}
	return strings.TrimSpace(text)
}
