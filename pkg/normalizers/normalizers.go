// Package normalizers provides field normalization functions for party matching
package normalizers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("nvendor", NormalizeVendorName)
	Register("naddress", NormalizeAddress)
	Register("ntaxid", NormalizeTaxID)
	Register("digits_only", DigitsOnly)
	Register("fold_accents", FoldAccents)
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

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
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

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// businessSuffixes are stripped from the tail of vendor names, longest first
// so "corporation" wins over "corp"
var businessSuffixes = []string{"incorporated", "corporation", "company", "corp", "inc", "llc", "llp", "ltd", "co"}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents strips combining marks so "Café" and "Cafe" compare equal
func FoldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeVendorName normalizes a vendor name for matching
// - Fold accents
// - Lowercase
// - Remove punctuation, collapse whitespace
// - Strip trailing business suffixes (Inc, LLC, Corp, ...)
// The result is idempotent: normalizing a normalized name is a no-op.
func NormalizeVendorName(s string) string {
	s = strings.ToLower(FoldAccents(s))

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) || unicode.IsPunct(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	s = strings.TrimSpace(result.String())

	// Strip suffixes repeatedly: "acme holdings inc llc" -> "acme holdings"
	for {
		stripped := false
		for _, suffix := range businessSuffixes {
			if s == suffix {
				continue
			}
			if strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSpace(s[:len(s)-len(suffix)-1])
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}

	return s
}

// NormalizeTaxID strips dashes and spaces and upper-cases a tax identifier
func NormalizeTaxID(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r == '-' || unicode.IsSpace(r) {
			continue
		}
		result.WriteRune(unicode.ToUpper(r))
	}
	return result.String()
}

// NormalizePhone removes all non-digit characters from a phone number
func NormalizePhone(s string) string {
	return DigitsOnly(s)
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
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

// addressReplacements maps common street words to their abbreviations
var addressReplacements = map[string]string{
	" street":    " st",
	" avenue":    " ave",
	" boulevard": " blvd",
	" drive":     " dr",
	" road":      " rd",
	" lane":      " ln",
	" court":     " ct",
	" circle":    " cir",
	" place":     " pl",
	" apartment": " apt",
	" suite":     " ste",
	" north":     " n",
	" south":     " s",
	" east":      " e",
	" west":      " w",
}

// NormalizeAddress normalizes an address string for matching
func NormalizeAddress(s string) string {
	s = strings.ToLower(FoldAccents(s))

	for full, abbr := range addressReplacements {
		s = strings.ReplaceAll(s, full, abbr)
	}

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) || r == ',' || r == '.' || r == '#' {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}
