package schema

import (
	"regexp"
	"strings"
)

// reasoningTagRE matches one maximal reasoning block for a single tag name,
// closed or running to end-of-string. Go's regexp (RE2) has no
// backreferences, so the four tag names that original_source's Python regex
// expresses as one backreferenced alternation (`<(think|thinking|reason|
// reasoning)>.*?(?:</\1>|$)`) are compiled as four separate patterns, one
// per tag, and applied in sequence.
var reasoningTagRE = func() []*regexp.Regexp {
	tags := []string{"think", "thinking", "reason", "reasoning"}
	out := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		out[i] = regexp.MustCompile(`(?s)<` + tag + `>.*?(?:</` + tag + `>|$)`)
	}
	return out
}()

// ContentOutsideReasoning returns s with every maximal reasoning-tag block
// removed, then whitespace-trimmed. An unclosed tag consumes to end of
// string. The input is never mutated; this is a pure read-side transform.
func ContentOutsideReasoning(s string) string {
	for _, re := range reasoningTagRE {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}
