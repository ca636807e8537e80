package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/spinabot/spinabot/internal/search"
)

// highlightTerms applies highlight styling to all occurrences of search terms in text.
// Terms are extracted from a search query string using search.Parse().
// Highlighting is case-insensitive.
func highlightTerms(text, searchQuery string, style lipgloss.Style) string {
	if searchQuery == "" || text == "" {
		return text
	}
	terms := extractSearchTerms(searchQuery)
	if len(terms) == 0 {
		return text
	}
	return applyHighlight(text, terms, style)
}

// extractSearchTerms extracts displayable search terms from a query string.
func extractSearchTerms(queryStr string) []string {
	q := search.Parse(queryStr)
	var terms []string
	terms = append(terms, q.TextTerms...)
	terms = append(terms, q.From, q.Company, q.Subject)
	// Deduplicate and filter empty
	seen := make(map[string]bool, len(terms))
	filtered := terms[:0]
	for _, t := range terms {
		lower := strings.ToLower(t)
		if t != "" && !seen[lower] {
			seen[lower] = true
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// applyHighlight wraps all case-insensitive occurrences of any term in text with style.
// It operates on runes so case folding that changes byte length cannot shift offsets.
func applyHighlight(text string, terms []string, style lipgloss.Style) string {
	if len(terms) == 0 {
		return text
	}
	textRunes := []rune(text)
	lowerRunes := []rune(strings.ToLower(text))
	if len(lowerRunes) != len(textRunes) {
		return text
	}
	// Mark highlighted runes; overlapping and adjacent matches merge.
	marked := make([]bool, len(textRunes))
	found := false
	for _, term := range terms {
		termRunes := []rune(strings.ToLower(term))
		n := len(termRunes)
		if n == 0 {
			continue
		}
		for i := 0; i+n <= len(lowerRunes); i++ {
			if string(lowerRunes[i:i+n]) == string(termRunes) {
				for j := i; j < i+n; j++ {
					marked[j] = true
				}
				found = true
			}
		}
	}
	if !found {
		return text
	}

	var sb strings.Builder
	for i := 0; i < len(textRunes); {
		j := i
		for j < len(textRunes) && marked[j] == marked[i] {
			j++
		}
		seg := string(textRunes[i:j])
		if marked[i] {
			seg = style.Render(seg)
		}
		sb.WriteString(seg)
		i = j
	}
	return sb.String()
}

// formatCount formats a count as a human-readable string (e.g., "1.5K", "2.3M").
func formatCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// formatReceived renders a timestamp compactly relative to now: time of
// day for today, month and day for this year, otherwise the full date.
func formatReceived(t, now time.Time) string {
	t = t.Local()
	now = now.Local()
	switch {
	case t.Year() == now.Year() && t.YearDay() == now.YearDay():
		return t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("2006-01-02")
	}
}

// padRight pads a string with spaces to fill width terminal cells.
// Uses lipgloss.Width to correctly handle ANSI codes and full-width characters.
func padRight(s string, width int) string {
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateRunes truncates a string to fit within maxWidth terminal cells.
// Full-width characters count as two cells. Newlines and tabs are
// flattened so a row never breaks the layout.
func truncateRunes(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// wrapText wraps text to fit within width terminal cells.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1

			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			// Prefer breaking at a space if we found one in the latter half
			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]

			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}

	return result
}
