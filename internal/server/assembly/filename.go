package assembly

import (
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filename is "<kind>_<Surname>_<Given>_<YYYYMMDD>.pdf" with every name
// part reduced to ASCII letters, digits and dashes.
func Filename(kind models.DocumentKind, surname, given string, at time.Time) string {
	parts := []string{
		kind.Slug(),
		filenamePart(surname),
		filenamePart(given),
		at.Format("20060102"),
	}
	return strings.Join(parts, "_") + ".pdf"
}

func filenamePart(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	dash := false
	for _, r := range ascii {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}
