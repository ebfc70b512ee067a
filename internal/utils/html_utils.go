package utils

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizeHTML reduces server-rendered HTML to plain text, keeping only
// paragraph and line breaks.
func SanitizeHTML(html string) string {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br")
	sanitized := p.Sanitize(html)
	sanitized = strings.ReplaceAll(sanitized, "<p>", "\n")
	sanitized = strings.ReplaceAll(sanitized, "</p>", "")
	sanitized = strings.ReplaceAll(sanitized, "<br/>", "\n")
	return strings.TrimSpace(sanitized)
}

// RenderCommentHTML converts server-rendered comment HTML into markdown
// for terminal output. The HTML is sanitized first; whatever markup
// survives that the converter cannot handle degrades to plain text.
func RenderCommentHTML(html string) string {
	sanitized := bluemonday.UGCPolicy().Sanitize(html)
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(sanitized)
	if err != nil {
		return SanitizeHTML(html)
	}
	return strings.TrimSpace(markdown)
}
