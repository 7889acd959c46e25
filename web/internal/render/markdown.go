package render

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var notice = bluemonday.UGCPolicy()

// Markdown converts operator-supplied markdown, such as the dashboard notice,
// to sanitized HTML for use in templates
func Markdown(markdown string) template.HTML {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	unsafe := blackfriday.Run([]byte(markdown))
	return template.HTML(notice.SanitizeBytes(unsafe))
}
