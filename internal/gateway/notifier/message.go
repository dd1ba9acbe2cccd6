package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Telegram rejects messages above 4096 chars; leave room for the footer.
const maxMessageLen = 3800

type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的推送：标题、若干段落（代码块内渲染）与页脚。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// Section appends a section and returns the message for chaining.
func (m *StructuredMessage) Section(title string, lines ...string) *StructuredMessage {
	m.Sections = append(m.Sections, MessageSection{Title: title, Lines: lines})
	return m
}

// KV formats a "key: value" line.
func KV(key string, value any) string {
	return fmt.Sprintf("%s: %v", key, value)
}

// RenderMarkdown renders the message, trimming it to the transport limit on a rune boundary.
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header + "\n\n")
	}
	b.WriteString(renderSections(m.Sections))
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer) + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("Time: " + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	out := truncate(strings.TrimSpace(b.String()), maxMessageLen)
	// a cut inside the section block leaves the fence open
	if strings.Count(out, "```")%2 == 1 {
		out += "\n```"
	}
	return out
}

func renderSections(secs []MessageSection) string {
	blocks := make([]string, 0, len(secs))
	for _, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		var b strings.Builder
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(sanitize(title) + "\n")
		}
		for _, line := range lines {
			b.WriteString("- " + sanitize(line) + "\n")
		}
		blocks = append(blocks, b.String())
	}
	if len(blocks) == 0 {
		return ""
	}
	return "```\n" + strings.Join(blocks, "\n") + "```\n\n"
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// sanitize keeps user text from closing the code fence early.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
