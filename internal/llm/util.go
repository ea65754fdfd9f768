package llm

import (
	"regexp"
	"strings"
)

// Reasoning models embed their chain of thought in the answer text inside
// tag pairs. The grader must only see the final answer.
var reasoningBlockRE = regexp.MustCompile(`(?is)<(think|thinking|reasoning|reflection)>.*?</\s*(think|thinking|reasoning|reflection)\s*>`)

var reasoningOpenRE = regexp.MustCompile(`(?is)<(think|thinking|reasoning|reflection)>.*$`)

// StripReasoning removes provider reasoning markup from raw answer text.
// An unterminated opening tag drops everything from the tag onward, since a
// truncated response has no usable answer after it.
func StripReasoning(raw string) string {
	s := reasoningBlockRE.ReplaceAllString(raw, "")
	s = reasoningOpenRE.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
