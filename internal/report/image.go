package report

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
}

// IsImageName reports whether filename has a known image extension.
func IsImageName(filename string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ImageMarkdown is the markdown reference for an uploaded image.
func ImageMarkdown(url string) string {
	return "![](" + url + ")"
}

// InsertImage inserts an image reference into content at the rune offset pos
// and returns the new content with the cursor placed after the insertion.
// Out-of-range positions are clamped.
func InsertImage(content string, pos int, url string) (string, int) {
	runes := []rune(content)
	pos = max(0, min(pos, len(runes)))

	ref := []rune(ImageMarkdown(url))
	out := make([]rune, 0, len(runes)+len(ref))
	out = append(out, runes[:pos]...)
	out = append(out, ref...)
	out = append(out, runes[pos:]...)
	return string(out), pos + len(ref)
}
