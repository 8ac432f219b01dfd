package common

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Spanish)

// TitleCase trims s and capitalizes the first letter of every word.
// Upper-case input ("MADRID, RETIRO") comes out as "Madrid, Retiro".
func TitleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// ParseDecimal parses numbers written with either a comma or a dot as the
// decimal separator. Empty or non-numeric input ("Ip", "Acum") yields 0.
func ParseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0
	}
	return v
}
