package ir

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTerm returns the lookup key of a defined term: NFC, Unicode case
// folded, surrounding quotes removed and internal whitespace collapsed.
// "Effective  Date" and "effective date" share one key.
func NormalizeTerm(term string) string {
	t := norm.NFC.String(term)
	t = strings.Trim(t, " \t\r\n\"'\u201c\u201d")
	t = cases.Fold().String(t)
	return strings.Join(strings.Fields(t), " ")
}
