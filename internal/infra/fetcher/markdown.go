package fetcher

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// MarkdownConverter turns feed HTML (descriptions, readability output) into
// compact Markdown for the analysis prompt.
type MarkdownConverter struct {
	converter *md.Converter
}

// NewMarkdownConverter creates a converter with GitHub-flavored output.
// Images, scripts and embeds carry no signal for the analysis and are dropped.
func NewMarkdownConverter() *MarkdownConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.Remove("img", "script", "style", "iframe", "noscript", "figure")
	return &MarkdownConverter{converter: converter}
}

// Convert returns Markdown for html. Plain text passes through unchanged;
// on conversion failure the input is returned with tags left as is.
func (c *MarkdownConverter) Convert(html string) string {
	html = strings.TrimSpace(html)
	if html == "" {
		return ""
	}
	if !strings.ContainsAny(html, "<&") {
		return html
	}
	out, err := c.converter.ConvertString(html)
	if err != nil {
		return html
	}
	return cleanMarkdown(out)
}

func cleanMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
