package translate

import (
	"regexp"
	"strings"
)

var (
	mdHeader     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBold       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	mdBoldAlt    = regexp.MustCompile(`__([^_]+)__`)
	mdItalicAlt  = regexp.MustCompile(`_([^_]+)_`)
	mdRuleDash   = regexp.MustCompile(`(?m)^---+\s*$`)
	mdRuleEq     = regexp.MustCompile(`(?m)^===+\s*$`)
	mdCodeBlock  = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")
	mdCodeInline = regexp.MustCompile("`([^`]+)`")
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown flattens markdown to plain text before translation. The
// translation model garbles formatting tokens, so headers, emphasis, rules
// and link syntax go; code block and link contents stay.
func StripMarkdown(text string) string {
	text = mdHeader.ReplaceAllString(text, "")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdBoldAlt.ReplaceAllString(text, "$1")
	text = mdItalicAlt.ReplaceAllString(text, "$1")
	text = mdRuleDash.ReplaceAllString(text, "")
	text = mdRuleEq.ReplaceAllString(text, "")
	text = mdCodeBlock.ReplaceAllString(text, "$1")
	text = mdCodeInline.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdBlankRuns.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
