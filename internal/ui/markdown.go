package ui

import "github.com/charmbracelet/glamour"

// markdownRenderer wraps glamour so rendering failures degrade to the
// raw text instead of breaking the view.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(width int) *markdownRenderer {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	return &markdownRenderer{renderer: renderer}
}

// RenderMarkdown renders content for terminal display, falling back to
// the raw text when rendering fails.
func RenderMarkdown(content string, width int) string {
	return newMarkdownRenderer(width).Render(content)
}

func (m *markdownRenderer) Render(content string) string {
	if m == nil || m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
