package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	labelStyles = map[int]lipgloss.Style{
		4: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		5: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135")),
		6: lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	}

	textStyle = lipgloss.NewStyle()

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// termStyler 用 lipgloss 为章节输出着色，实现 render.Styler。
type termStyler struct{}

func (termStyler) Title(s string) string { return sectionTitleStyle.Render("## " + s) }

func (termStyler) Label(heading int, s string) string {
	st, ok := labelStyles[heading]
	if !ok {
		st = labelStyles[6]
	}
	return st.Render(s + ":")
}

func (termStyler) Text(s string) string { return textStyle.Render(s) }
