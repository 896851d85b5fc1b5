package stores

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var htmlPolicy = bluemonday.UGCPolicy()

// RenderMarkdown converts model output to sanitized HTML
func RenderMarkdown(text string) string {
	out := blackfriday.Run([]byte(text))
	return string(htmlPolicy.SanitizeBytes(out))
}
