// Package markdown renders report and event bodies, either to HTML for the
// web shell or to styled text for the terminal.
package markdown

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// The parser configuration never changes and goldmark keeps per-call state
// out of the shared instance.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func engine() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownInstance
}

// HTML renders GitHub-flavored markdown to HTML. Raw HTML in the source is
// omitted.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := engine().Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
