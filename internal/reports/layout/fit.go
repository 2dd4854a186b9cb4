package layout

import (
	"math"
	"strings"
	"unicode/utf8"
)

// MinImageSize is the smallest box a photo is ever fitted into.
var MinImageSize = Size{W: 120, H: 80}

// Measure returns the rendered width of s in the current font.
type Measure func(s string) float64

// FitImage scales img into box without distorting it. Boxes smaller than
// min are grown to min first, so a photo is never shrunk into nothing.
func FitImage(img, box, min Size) Size {
	box.W = math.Max(box.W, min.W)
	box.H = math.Max(box.H, min.H)
	if img.W <= 0 || img.H <= 0 {
		return Size{W: box.W, H: box.W * min.H / min.W}
	}

	scale := box.W / img.W
	if img.H*scale > box.H {
		scale = box.H / img.H
	}
	return Size{W: img.W * scale, H: img.H * scale}
}

// WrapText splits text into lines no wider than width. Explicit newlines
// are kept; words wider than a line are broken by rune.
func WrapText(measure Measure, text string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if measure(candidate) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			current = word
			for measure(current) > width && utf8.RuneCountInString(current) > 1 {
				head, tail := breakWord(measure, current, width)
				lines = append(lines, head)
				current = tail
			}
		}
		lines = append(lines, current)
	}

	// trailing blank lines carry no content
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil
	}
	return lines
}

func breakWord(measure Measure, word string, width float64) (string, string) {
	runes := []rune(word)
	cut := 1
	for i := 1; i <= len(runes); i++ {
		if measure(string(runes[:i])) > width {
			break
		}
		cut = i
	}
	return string(runes[:cut]), string(runes[cut:])
}

// Truncate shortens text to fit width, ending it with "..." when cut.
func Truncate(measure Measure, text string, width float64) string {
	if measure(text) <= width {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		cut := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if measure(cut) <= width {
			return cut
		}
	}
	return ellipsis
}
