package services

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// emptyProseFallback is rendered when a prose completion has no content.
const emptyProseFallback = "The assistant could not generate an answer."

// Raw HTML in model output is not passed through (goldmark's default).
var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// RenderMarkdown converts model prose to HTML. Blank input renders the fallback message.
func RenderMarkdown(markdownText string) string {
	text := strings.TrimSpace(markdownText)
	if text == "" {
		text = emptyProseFallback
	}

	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return "<p>" + template.HTMLEscapeString(text) + "</p>"
	}
	return out.String()
}
