package completion

import "strings"

// StripSQLFence removes enclosing markdown code-fence markup and a leading
// sql language tag from generated query text. Text without fences passes
// through unchanged.
func StripSQLFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "```") {
		return text
	}

	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}

	text = parts[1]
	text = strings.TrimPrefix(text, "sql\n")

	return strings.TrimSpace(text)
}
