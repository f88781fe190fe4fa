package common

import (
	"strings"
	"unicode/utf8"
)

// MaskAddress hides most of a contact address for read-only views.
//
// Phone numbers keep their last four digits ("+39 *** *** 4567" style, the
// separators are preserved). E-mail addresses keep the first rune of the
// local part and the whole domain ("m****@example.com"). The full value is
// never altered in storage; this is a presentation helper only.
func MaskAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	if at := strings.LastIndex(addr, "@"); at > 0 {
		local, domain := addr[:at], addr[at:]
		first, size := utf8.DecodeRuneInString(local)
		return string(first) + strings.Repeat(string(MaskedRune), utf8.RuneCountInString(local[size:])) + domain
	}

	digits := 0
	for _, r := range addr {
		if r >= '0' && r <= '9' {
			digits++
		}
	}

	keep := 4
	if digits <= keep {
		return addr
	}

	var b strings.Builder
	seen := 0
	for _, r := range addr {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= digits-keep {
				b.WriteRune(MaskedRune)
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// WipeByteArray overwrites b with zeros. Used for codes read from the
// terminal once they have been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
