package smw

import (
	"regexp"
	"strings"
)

var (
	askOpenRegex      = regexp.MustCompile(`^\s*\{\{`)
	askFunctionRegex  = regexp.MustCompile(`#ask:`)
	askCloseRegex     = regexp.MustCompile(`\}\}\s*$`)
	lineBreakRegex    = regexp.MustCompile(`\\n|\r?\n`)
	pipeSpaceRegex    = regexp.MustCompile(`\s*\|\s*`)
	assignSpaceRegex  = regexp.MustCompile(`\s*=\s*`)
	bracketSpaceRegex = regexp.MustCompile(`\]\s*\[`)
	conceptRegex      = regexp.MustCompile(`\[\[Concept:(.+?)\]\]`)
)

// FixAsk turns an inline ask query as written in wiki markup
// (e.g. "{{#ask: [[Category:City]] |?Population }}") into the single-line
// form accepted by the ask API. Parameters are separated by line breaks or
// by the escaped two-character sequence \n.
//
// Blanks are replaced with underscores because the API rejects them; values
// that legitimately contain blanks are altered by this.
func FixAsk(ask string) string {
	fixed := askOpenRegex.ReplaceAllString(ask, "")
	fixed = askFunctionRegex.ReplaceAllString(fixed, "")
	fixed = askCloseRegex.ReplaceAllString(fixed, "")

	var sb strings.Builder
	for _, part := range lineBreakRegex.Split(fixed, -1) {
		part = strings.TrimSpace(part)
		part = pipeSpaceRegex.ReplaceAllString(part, "|")
		part = assignSpaceRegex.ReplaceAllString(part, "=")
		part = bracketSpaceRegex.ReplaceAllString(part, "][")
		part = strings.ReplaceAll(part, " ", "_")
		sb.WriteString(part)
	}
	return sb.String()
}

// Concept returns the concept name selected by the query, if any.
func Concept(ask string) (string, bool) {
	m := conceptRegex.FindStringSubmatch(ask)
	if m == nil {
		return "", false
	}
	return m[1], true
}
