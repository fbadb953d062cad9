package responses

import (
	"regexp"
	"strings"
)

var thinkingModel = regexp.MustCompile(`(?i)qwq`)

// PreprocessThinkTags prepends the missing opening <think> tag emitted by
// QwQ-family models that only close their reasoning block. Other models and
// text without a closing tag are returned unchanged.
func PreprocessThinkTags(text, model string) string {
	if text == "" || !thinkingModel.MatchString(model) {
		return text
	}
	if !strings.Contains(text, "</think>") || strings.HasPrefix(strings.TrimSpace(text), "<think>") {
		return text
	}
	return "<think>\n" + text
}
