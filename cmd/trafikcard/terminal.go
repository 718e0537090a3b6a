package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/hashtag"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/view"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	groupStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	mutedStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
)

const minWidth = 24

// renderTerminal draws a rendered card for a terminal of the given width. Every item gets a
// left border in its severity color.
func renderTerminal(c view.Card, width int) string {
	if c.Hidden {
		return ""
	}
	if width < minWidth {
		width = minWidth
	}

	var b strings.Builder
	if c.Header != "" {
		b.WriteString(headerStyle.Render(c.Header))
		b.WriteString("\n")
	}
	if c.Empty != "" {
		b.WriteString(mutedStyle.Render(c.Empty))
		b.WriteString("\n")
	}

	for _, g := range c.Groups {
		if g.Label != "" {
			b.WriteString(groupStyle.Render(g.Label))
			b.WriteString("\n")
		}
		for _, item := range g.Items {
			b.WriteString(renderItem(item, width))
			b.WriteString("\n")
		}
	}

	if c.Footer != nil && c.Footer.Label != "" {
		b.WriteString(mutedStyle.Render(c.Footer.Label + " · " + c.Footer.RestoreLabel))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderItem(item view.Item, width int) string {
	// Border and padding take three columns.
	inner := width - 3

	lines := []string{lipgloss.NewStyle().Bold(true).Render(runewidth.Truncate(item.Headline, inner, "…"))}
	lines = append(lines, renderBlocks(item.Inline, inner)...)
	if item.Expanded {
		lines = append(lines, renderBlocks(item.Details, inner)...)
	} else if item.Expandable && item.ToggleLabel != "" {
		lines = append(lines, mutedStyle.Render("▸ "+item.ToggleLabel))
	}
	if len(item.Tags) > 0 {
		lines = append(lines, mutedStyle.Render(runewidth.Truncate(hashtag.Format(item.Tags), inner, "…")))
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(item.Color)).
		PaddingLeft(1).
		Width(width - 1)
	if item.Background {
		style = style.Background(lipgloss.Color(item.Color))
	}
	if item.Dismissing {
		style = style.Faint(true)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func renderBlocks(blocks []view.Block, width int) []string {
	var lines []string
	for _, block := range blocks {
		switch block.Kind {
		case view.BlockMeta:
			for _, f := range block.Fields {
				value := f.Value
				if f.URL != "" {
					value = f.URL
				}
				label := f.Label + ": "
				lines = append(lines, labelStyle.Render(label)+runewidth.Truncate(value, width-runewidth.StringWidth(label), "…"))
			}
		case view.BlockText:
			for _, line := range strings.Split(block.Text, "\n") {
				lines = append(lines, runewidth.Wrap(line, width))
			}
		case view.BlockMap:
			if block.Map != nil {
				lines = append(lines, mutedStyle.Render("[map "+block.Map.Container+"]"))
			}
		}
	}
	return lines
}
