package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/asandoval/breeze/internal/overlay"
)

const (
	fromWidth    = 22
	subjectWidth = 48
)

// formatRow renders one list line: selection marker, unread marker,
// sender, subject, snippet.
func (a *App) formatRow(e overlay.EffectiveEntity, selected bool) string {
	marker := "  "
	if selected {
		marker = "[green]✓[-] "
	}
	readMark := " "
	style := ""
	if !e.Read {
		readMark = "●"
		style = "[::b]"
	}
	from := runewidth.Truncate(cleanFrom(e.From), fromWidth, "…")
	from = runewidth.FillRight(from, fromWidth)
	subject := e.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	subject = runewidth.Truncate(subject, subjectWidth, "…")
	subject = runewidth.FillRight(subject, subjectWidth)
	snippet := strings.ReplaceAll(e.Snippet, "\n", " ")
	return fmt.Sprintf("%s%s%s %s %s [gray]%s[-]", marker, style, readMark, from, subject, snippet)
}

// cleanFrom strips the address part of a From header for display.
func cleanFrom(from string) string {
	if i := strings.Index(from, "<"); i > 0 {
		return strings.TrimSpace(strings.Trim(from[:i], `" `))
	}
	return from
}
