package assembly

import (
	"strings"
	"unicode/utf8"
)

// Font selects the face used for a run of text. The family is fixed.
type Font struct {
	Style string // "", "B", "I" or "BI"
	Size  float64
}

// Measurer reports the rendered width of s in layout units.
type Measurer interface {
	TextWidth(f Font, s string) float64
}

// Wrap breaks text into lines no wider than width. Newlines are hard
// breaks and blank lines are kept as empty strings. Words wider than a
// whole line are split between runes.
func Wrap(m Measurer, f Font, text string, width float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			for w != "" && m.TextWidth(f, w) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				head, tail := splitToWidth(m, f, w, width)
				out = append(out, head)
				w = tail
			}
			if w == "" {
				continue
			}
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if m.TextWidth(f, candidate) <= width {
				line = candidate
				continue
			}
			out = append(out, line)
			line = w
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// splitToWidth returns the longest prefix of w that fits, never less than
// one rune.
func splitToWidth(m Measurer, f Font, w string, width float64) (string, string) {
	cut := 0
	for i := range w {
		if i == 0 {
			continue
		}
		if m.TextWidth(f, w[:i]) > width {
			break
		}
		cut = i
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(w)
		cut = size
	}
	return w[:cut], w[cut:]
}
