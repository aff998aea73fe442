package prompt

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.UGCPolicy()

// Sanitize strips scripts, event handlers and other unsafe markup from model
// output before it is placed into a page. Headings, paragraphs, lists and
// emphasis survive.
func Sanitize(html string) string {
	return strings.TrimSpace(policy.Sanitize(stripFence(html)))
}

// stripFence removes a ```html ... ``` wrapper that models like to add.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	t = strings.TrimSuffix(t[3:], "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 && !strings.ContainsAny(t[:nl], "<> ") {
		t = t[nl+1:]
	}
	return t
}
