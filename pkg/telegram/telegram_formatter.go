package telegram

import (
	"fmt"
	"strings"
	"time"
)

// FormatRestartMessage renders a process restart alert as Telegram Markdown.
func FormatRestartMessage(name string, exitStatus string, restarts int, at time.Time) string {
	var b strings.Builder
	b.WriteString("⚠️ *Process restarted*\n\n")
	b.WriteString(fmt.Sprintf("*Process:* `%s`\n", escapeMarkdown(name)))
	b.WriteString(fmt.Sprintf("*Exit:* %s\n", escapeMarkdown(exitStatus)))
	b.WriteString(fmt.Sprintf("*Restarts:* %d\n", restarts))
	b.WriteString(fmt.Sprintf("*At:* %s", at.UTC().Format(time.RFC3339)))
	return b.String()
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return replacer.Replace(s)
}
