package notifier

import (
	"html"
	"strings"
	"time"
)

const maxAlertLen = 3800

// Alert is a uniform HTML notification layout: icon + bold title, key/value
// lines, optional footer, timestamp.
type Alert struct {
	Icon      string
	Title     string
	Lines     []string
	Footer    string
	Timestamp time.Time
}

// RenderHTML produces Telegram-compatible HTML, escaping user-supplied text
// and truncating over-long bodies.
func (a Alert) RenderHTML() string {
	var b strings.Builder
	header := strings.TrimSpace(a.Icon + " " + html.EscapeString(strings.TrimSpace(a.Title)))
	if header != "" {
		b.WriteString("<b>" + header + "</b>\n\n")
	}
	for _, line := range a.Lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString(html.EscapeString(line))
		b.WriteString("\n")
	}
	if footer := strings.TrimSpace(a.Footer); footer != "" {
		b.WriteString("\n<i>" + html.EscapeString(footer) + "</i>\n")
	}
	if !a.Timestamp.IsZero() {
		b.WriteString("\n" + a.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxAlertLen {
		body = body[:maxAlertLen] + "..."
	}
	return body
}
