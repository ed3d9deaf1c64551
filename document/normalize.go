package document

import (
	"regexp"
	"strings"
)

// tagPattern matches markup tags non-greedily. Dot does not match newlines.
var tagPattern = regexp.MustCompile(`<.*?>`)

// entityReplacements is applied in order; &amp; comes after the accented letters
// so "&amp;aacute;" decodes to "&aacute;" and not to "á".
var entityReplacements = []struct {
	old, new string
}{
	{"&nbsp;", " "},
	{"&aacute;", "á"},
	{"&eacute;", "é"},
	{"&iacute;", "í"},
	{"&oacute;", "ó"},
	{"&uacute;", "ú"},
	{"&ntilde;", "ñ"},
	{"&Aacute;", "Á"},
	{"&Eacute;", "É"},
	{"&Iacute;", "Í"},
	{"&Oacute;", "Ó"},
	{"&Uacute;", "Ú"},
	{"&Ntilde;", "Ñ"},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#039;", "'"},
	{`\/`, "/"},
}

// Normalize removes markup tags, decodes common HTML entities and trims whitespace.
// Empty input yields empty output.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	text := tagPattern.ReplaceAllString(raw, "")
	for _, r := range entityReplacements {
		text = strings.ReplaceAll(text, r.old, r.new)
	}
	return strings.TrimSpace(text)
}

// Truncate returns at most limit characters of s. Characters are runes, not bytes.
func Truncate(s string, limit int) string {
	if limit < 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
