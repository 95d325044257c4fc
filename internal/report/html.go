package report

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Run names, objectives and proposed tags are user or model input, so raw
// HTML is dropped and only safe link protocols are rendered. Smartypants is
// off because it copies the page title through unescaped.
const htmlFlags = html.SkipHTML | html.Safelink | html.NoopenerLinks | html.HrefTargetBlank | html.CompletePage

// HTML renders Markdown into a standalone page.
func HTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: htmlFlags,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}
