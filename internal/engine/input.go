package engine

import (
	"strconv"
	"strings"
)

// NormalizePhone strips everything but digits and a leading plus sign from a
// raw sender identifier.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripCommandPrefix removes an optional leading command prefix from a
// message. The prefix is matched case-insensitively in four forms: followed
// by a space, a colon, a comma, or preceded by an @ and followed by a space.
// A message consisting of the bare prefix becomes empty.
func StripCommandPrefix(prefix, text string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return strings.TrimSpace(text)
	}
	lc := strings.ToLower(strings.TrimLeft(text, " \t\r\n"))
	trimmed := strings.TrimLeft(text, " \t\r\n")
	p := strings.ToLower(prefix)
	for _, variant := range []string{p + " ", p + ":", p + ",", "@" + p + " "} {
		if strings.HasPrefix(lc, variant) {
			return strings.TrimSpace(trimmed[len(variant):])
		}
	}
	if lc == p {
		return ""
	}
	return strings.TrimSpace(text)
}

// ParseAmount extracts a monetary amount from free-form input, keeping only
// digits and the decimal point. Returns 0 when nothing numeric remains.
func ParseAmount(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// formatNaira renders an amount with two decimals and thousands separators,
// e.g. 1234.5 -> "1,234.50".
func formatNaira(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}
