package markdown

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/trackerhq/tracker/internal/theme"
)

// Terminal renders markdown as styled text wrapped to width.
func Terminal(source string, styles theme.Styles, width int) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	src := []byte(source)
	doc := engine().Parser().Parse(text.NewReader(src))

	r := &terminalRenderer{
		source: src,
		styles: styles,
		lip:    styles.Renderer(),
		width:  max(width, 20),
	}
	_ = ast.Walk(doc, r.walk)
	return strings.TrimRight(r.out.String(), "\n")
}

// terminalRenderer collects inline content per block and flushes it wrapped
// when the block closes.
type terminalRenderer struct {
	source []byte
	styles theme.Styles
	lip    *lipgloss.Renderer
	width  int

	out    strings.Builder
	inline strings.Builder

	bold   int
	italic int
	strike int

	lists  []listState
	quotes int
}

type listState struct {
	ordered bool
	next    int
}

func (r *terminalRenderer) prefix() string {
	return strings.Repeat("│ ", r.quotes) + strings.Repeat("  ", max(len(r.lists)-1, 0))
}

func (r *terminalRenderer) flush(style lipgloss.Style, lead string) {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return
	}
	pre := r.prefix()
	body := style.Width(max(r.width-len([]rune(pre))-len([]rune(lead)), 10)).Render(content)
	for i, line := range strings.Split(body, "\n") {
		r.out.WriteString(pre)
		if i == 0 {
			r.out.WriteString(lead)
		} else {
			r.out.WriteString(strings.Repeat(" ", len([]rune(lead))))
		}
		r.out.WriteString(strings.TrimRight(line, " "))
		r.out.WriteString("\n")
	}
}

func (r *terminalRenderer) blankLine() {
	if len(r.lists) > 0 {
		return
	}
	if s := r.out.String(); s != "" && !strings.HasSuffix(s, "\n\n") {
		r.out.WriteString("\n")
	}
}

func (r *terminalRenderer) styled(s string) string {
	style := r.lip.NewStyle().Foreground(r.styles.Palette.NormalText)
	if r.bold > 0 {
		style = style.Bold(true)
	}
	if r.italic > 0 {
		style = style.Italic(true)
	}
	if r.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(s)
}

func (r *terminalRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			r.inline.Reset()
			return ast.WalkContinue, nil
		}
		lead := ""
		if len(r.lists) > 0 && node.PreviousSibling() == nil {
			lead = r.bullet()
		}
		r.flush(r.lip.NewStyle(), lead)
		r.blankLine()

	case *ast.Heading:
		if entering {
			r.inline.Reset()
			return ast.WalkContinue, nil
		}
		r.flush(r.styles.Title, strings.Repeat("#", n.Level)+" ")
		r.blankLine()

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			r.codeBlock(node)
			r.blankLine()
		}
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			r.quotes++
		} else {
			r.quotes--
			r.blankLine()
		}

	case *ast.List:
		if entering {
			r.lists = append(r.lists, listState{ordered: n.IsOrdered(), next: n.Start})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			r.blankLine()
		}

	case *ast.ThematicBreak:
		if entering {
			r.out.WriteString(r.styles.Faint.Render(strings.Repeat("─", min(r.width, 40))))
			r.out.WriteString("\n")
			r.blankLine()
		}

	case *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if entering {
			r.inline.WriteString(r.styled(string(n.Segment.Value(r.source))))
			if n.SoftLineBreak() {
				r.inline.WriteString(" ")
			}
			if n.HardLineBreak() {
				r.inline.WriteString("\n")
			}
		}

	case *ast.String:
		if entering {
			r.inline.WriteString(r.styled(string(n.Value)))
		}

	case *ast.Emphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if n.Level >= 2 {
			r.bold += delta
		} else {
			r.italic += delta
		}

	case *extast.Strikethrough:
		if entering {
			r.strike++
		} else {
			r.strike--
		}

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					code.Write(t.Segment.Value(r.source))
				}
			}
			r.inline.WriteString(r.lip.NewStyle().Foreground(r.styles.Palette.Code).Render(code.String()))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Link:
		if !entering {
			r.inline.WriteString(r.lip.NewStyle().Foreground(r.styles.Palette.Link).Render(" (" + string(n.Destination) + ")"))
		}

	case *ast.AutoLink:
		if entering {
			r.inline.WriteString(r.lip.NewStyle().Foreground(r.styles.Palette.Link).Render(string(n.URL(r.source))))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Image:
		if entering {
			r.inline.WriteString(r.styles.Faint.Render("[image: " + string(n.Destination) + "]"))
		}
		return ast.WalkSkipChildren, nil

	case *extast.TaskCheckBox:
		if entering {
			if n.IsChecked {
				r.inline.WriteString("[x] ")
			} else {
				r.inline.WriteString("[ ] ")
			}
		}

	case *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *terminalRenderer) bullet() string {
	top := &r.lists[len(r.lists)-1]
	if !top.ordered {
		return "• "
	}
	b := strconv.Itoa(top.next) + ". "
	top.next++
	return b
}

func (r *terminalRenderer) codeBlock(node ast.Node) {
	lines := node.Lines()
	style := r.lip.NewStyle().Foreground(r.styles.Palette.Code)
	pre := r.prefix() + "    "
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(r.source)), "\n")
		r.out.WriteString(pre)
		r.out.WriteString(style.Render(line))
		r.out.WriteString("\n")
	}
}
