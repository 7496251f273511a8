package grammar

import (
	"strings"
)

// LineWidth is the most operators the formatter puts on one line.
const LineWidth = 64

// loops with at most this many operators and no nesting stay on one line
const shortLoop = 8

func indent(level int) string {
	return strings.Repeat("    ", level)
}

// Format renders the program in canonical layout: straight-line runs on
// their own lines, loop bodies indented one level, comments trimmed onto
// lines of their own.
func Format(p *Program) string {
	var b strings.Builder
	writeItems(&b, p.Items, 0)
	return b.String()
}

func (p *Program) String() string {
	return Format(p)
}

func writeItems(b *strings.Builder, items []*Item, level int) {
	var run strings.Builder
	flush := func() {
		ops := run.String()
		for len(ops) > 0 {
			n := min(len(ops), LineWidth)
			b.WriteString(indent(level) + ops[:n] + "\n")
			ops = ops[n:]
		}
		run.Reset()
	}

	for _, it := range items {
		switch {
		case it.Op != "":
			run.WriteString(it.Op)
		case it.Loop != nil:
			flush()
			it.Loop.write(b, level)
		case it.Comment != nil:
			if !it.Comment.blank() {
				flush()
				it.Comment.write(b, level)
			}
		}
	}
	flush()
}

func (l *Loop) write(b *strings.Builder, level int) {
	if l.commentFree() && depth(l.Body) == 0 && countOps(l.Body) <= shortLoop {
		b.WriteString(indent(level) + "[" + l.inline() + "]\n")
		return
	}
	b.WriteString(indent(level) + "[\n")
	writeItems(b, l.Body, level+1)
	b.WriteString(indent(level) + "]\n")
}

// inline renders a short comment-free body on one line.
func (l *Loop) inline() string {
	var s strings.Builder
	for _, it := range l.Body {
		s.WriteString(it.Op)
	}
	return s.String()
}

func (l *Loop) commentFree() bool {
	for _, it := range l.Body {
		if it.Comment != nil && !it.Comment.blank() {
			return false
		}
	}
	return true
}

func (c *Comment) String() string {
	return c.Text
}

func (c *Comment) blank() bool {
	return strings.TrimSpace(c.Text) == ""
}

func (c *Comment) write(b *strings.Builder, level int) {
	for _, line := range strings.Split(c.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString(indent(level) + line + "\n")
		}
	}
}

// FormatSource parses and formats source in one step.
func FormatSource(filename, source string) (string, error) {
	program, err := ParseString(filename, source)
	if err != nil {
		return "", err
	}
	return Format(program), nil
}
