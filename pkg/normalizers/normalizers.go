// Package normalizers provides field normalization functions for listing fingerprints
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("digits_only", DigitsOnly)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("ntitle", NormalizeBusinessTitle)
	Register("naddress", NormalizeAddress)
	Register("nstate", NormalizeState)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names pass the
// value through unchanged.
func Apply(value, normalizer string) string {
	fn, ok := Get(normalizer)
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizePhone removes all non-digit characters and strips a US country prefix
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeState uppercases a two-letter state code
func NormalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// businessSuffixes are legal entity markers stripped from listing titles.
// Ordered longest-first so "incorporated" is removed before "inc".
var businessSuffixes = []string{
	"incorporated", "corporation", "company", "limited",
	"l.l.c.", "llc", "l.l.p.", "llp", "inc.", "inc",
	"corp.", "corp", "ltd.", "ltd", "co.", "co", "lp",
}

// NormalizeBusinessTitle normalizes a business name for matching
// - Lowercase
// - Strip legal suffixes (LLC, Inc, Corp, ...)
// - Remove punctuation, collapse whitespace
func NormalizeBusinessTitle(s string) string {
	s = strings.ToLower(s)

	// Strip trailing legal suffixes, possibly stacked ("co., llc")
	for changed := true; changed; {
		changed = false
		s = strings.TrimRight(strings.TrimSpace(s), ",.")
		for _, suffix := range businessSuffixes {
			trimmed := strings.TrimSpace(s)
			if strings.HasSuffix(trimmed, " "+suffix) || strings.HasSuffix(trimmed, ","+suffix) {
				s = trimmed[:len(trimmed)-len(suffix)-1]
				changed = true
				break
			}
		}
	}

	// Remove punctuation, collapse whitespace
	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) || r == '-' || r == '&' || r == '/' {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeAddress normalizes a street address string
func NormalizeAddress(s string) string {
	s = strings.ToLower(s)

	// Common abbreviations
	replacements := map[string]string{
		" street":    " st",
		" avenue":    " ave",
		" boulevard": " blvd",
		" drive":     " dr",
		" road":      " rd",
		" lane":      " ln",
		" court":     " ct",
		" circle":    " cir",
		" place":     " pl",
		" highway":   " hwy",
		" parkway":   " pkwy",
		" apartment": " apt",
		" suite":     " ste",
		" north":     " n",
		" south":     " s",
		" east":      " e",
		" west":      " w",
	}

	for full, abbr := range replacements {
		s = strings.ReplaceAll(s, full, abbr)
	}

	// Strip punctuation except unit markers like "#"
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '#' {
			result.WriteRune(r)
		}
	}
	s = result.String()

	s = spaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
