package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// priceDigitsRegex matches the weekly rent once thousands separators are gone
var priceDigitsRegex = regexp.MustCompile(`\d{2,4}`)

// ParsePrice extracts the first run of 2-4 digits from noisy price text.
// It returns nil when nothing matches so "unknown" is never confused with 0.
//
//	"$1,250/week" -> 1250
//	"$420 pw"     -> 420
//	"Ask"         -> nil
func ParsePrice(text string) *int {
	cleaned := strings.NewReplacer(",", "", "\u00a0", "", "\u202f", "").Replace(text)
	match := priceDigitsRegex.FindString(cleaned)
	if match == "" {
		return nil
	}
	value, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &value
}

// AbsoluteURL turns a scraped href into an absolute URL.
// Protocol-relative links get https, root-relative links get the site origin.
func AbsoluteURL(origin, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base, err := url.Parse(origin)
	if err != nil || base.Host == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// normalizeWhitespace collapses runs of whitespace (including nbsp) to one space
func normalizeWhitespace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
