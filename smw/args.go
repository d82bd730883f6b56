package smw

import (
	"regexp"
	"strconv"
	"strings"
)

var digitsRegex = regexp.MustCompile(`^\d+$`)

// OuterArgumentValue returns the integer value of the last top-level
// "|name=value" argument of the query. Matching ignores case and whitespace.
// The leading page selection ([[...]]) is never matched because an argument
// has to be introduced by a pipe.
//
// Missing arguments, empty input and non-integer values all yield false.
func OuterArgumentValue(name, query string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" || query == "" {
		return 0, false
	}

	pattern, err := regexp.Compile(`(?i)\|\s*` + regexp.QuoteMeta(name) + `\s*=([^|]*)`)
	if err != nil {
		return 0, false
	}

	matches := pattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return 0, false
	}

	value := strings.TrimSpace(matches[len(matches)-1][1])
	if !digitsRegex.MatchString(value) {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
