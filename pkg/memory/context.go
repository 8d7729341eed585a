package memory

import (
	"strings"
)

// FormatContext renders the log as "<user> says <text>" lines. When the result
// runs past wordLimit words it is cut to its first charLimit characters.
func FormatContext(messages []UserMessage, wordLimit, charLimit int) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		lines[i] = m.UserID + " says " + m.Text
	}
	context := strings.Join(lines, "\n")

	if wordLimit > 0 && len(strings.Fields(context)) > wordLimit {
		context = truncateRunes(context, charLimit)
	}
	return context
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
