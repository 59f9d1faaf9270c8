package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// ToWidgetHTML converts completion markdown to HTML safe to inject into
// the chat widget. Only a small allowlist of formatting tags survives.
func ToWidgetHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	html := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))

	return cleanHTMLForWidget(html)
}

var (
	codeBlockPattern = regexp.MustCompile(`<pre><code(?: class="[^"]*")?>`)
	anyTagPattern    = regexp.MustCompile(`</?([a-zA-Z]+)(?:\s[^>]*)?>`)
	tagNamePattern   = regexp.MustCompile(`</?([a-zA-Z]+)`)
	newlinePattern   = regexp.MustCompile(`\n{3,}`)
)

var supportedTags = []string{
	"p", "b", "strong", "i", "em", "u", "s", "code", "pre",
	"ul", "ol", "li", "blockquote", "br",
}

// cleanHTMLForWidget strips everything the widget's message bubble does
// not render. Links are dropped deliberately: the reply is model output
// and the site never vouches for where it points.
func cleanHTMLForWidget(html string) string {
	html = codeBlockPattern.ReplaceAllString(html, "<pre>")
	html = strings.ReplaceAll(html, "</code></pre>", "</pre>")

	html = anyTagPattern.ReplaceAllStringFunc(html, func(match string) string {
		tagMatch := tagNamePattern.FindStringSubmatch(match)
		if len(tagMatch) > 1 {
			tagName := strings.ToLower(tagMatch[1])
			for _, supported := range supportedTags {
				if tagName == supported {
					// Re-emit without attributes
					if strings.HasPrefix(match, "</") {
						return "</" + tagName + ">"
					}
					return "<" + tagName + ">"
				}
			}
		}
		return ""
	})

	html = newlinePattern.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
