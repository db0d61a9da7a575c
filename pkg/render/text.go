package render

import (
	"io"
	"strconv"
	"strings"
)

// EmptyPlaceholder 是空值在文本输出中的占位内容。
const EmptyPlaceholder = "(empty)"

// Styler 控制文本输出中各部分的样式，终端输出可以在这里加颜色。
type Styler interface {
	Title(s string) string
	Label(heading int, s string) string
	Text(s string) string
}

type plainStyler struct{}

func (plainStyler) Title(s string) string { return "## " + s }
func (plainStyler) Label(_ int, s string) string { return s + ":" }
func (plainStyler) Text(s string) string { return s }

// PlainText 返回不带样式的文本，用于全文检索索引。
func PlainText(sections []Section) string {
	var b strings.Builder
	writeSections(&b, sections, plainStyler{})
	return b.String()
}

// WriteText 使用给定样式将章节写入 w。
func WriteText(w io.Writer, sections []Section, st Styler) error {
	if st == nil {
		st = plainStyler{}
	}
	var b strings.Builder
	writeSections(&b, sections, st)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeSections(b *strings.Builder, sections []Section, st Styler) {
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(st.Title(s.Title))
		b.WriteString("\n")
		writeNode(b, s.Body, 0, st)
	}
}

func writeNode(b *strings.Builder, n Node, indent int, st Styler) {
	marker := ""
	if n.Index > 0 {
		marker = strconv.Itoa(n.Index) + ". "
	}
	if n.Label != "" {
		line(b, indent, marker+st.Label(n.Heading, n.Label))
		marker = ""
		indent++
	}

	switch n.Kind {
	case KindLeaf:
		line(b, indent, marker+st.Text(n.Text))
	case KindEmpty:
		line(b, indent, marker+st.Text(EmptyPlaceholder))
	case KindList, KindGroup:
		if marker != "" {
			line(b, indent, strings.TrimSpace(marker))
			indent++
		}
		for _, c := range n.Children {
			writeNode(b, c, indent, st)
		}
	}
}

func line(b *strings.Builder, indent int, s string) {
	b.WriteString(strings.Repeat("  ", indent))
	b.WriteString(s)
	b.WriteString("\n")
}
