package chat

import (
	"regexp"
	"strings"
)

var (
	taggedBlock = regexp.MustCompile("```(?:[a-zA-Z0-9+#]*)\n([\\s\\S]+?)```")
	plainBlock  = regexp.MustCompile("```([\\s\\S]+?)```")
)

// ExtractCodeBlock returns the body of the first fenced code block in msg.
// A block opened with a language tag wins over a plain one. Blocks that are
// empty after trimming are ignored.
func ExtractCodeBlock(msg string) (string, bool) {
	for _, re := range []*regexp.Regexp{taggedBlock, plainBlock} {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if code := strings.TrimSpace(m[1]); code != "" {
			return code, true
		}
	}
	return "", false
}
