// Package metric extracts and formats numeric metrics that may be embedded
// in freeform text, such as "Current salary: $4,200". A metric is a number
// plus an optional currency symbol; absence of a value is reported
// explicitly so callers can distinguish "unknown" from "zero".
package metric

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultSymbol is used when no currency glyph can be detected.
const DefaultSymbol = "$"

// Metric is a parsed numeric value with an optional currency symbol.
type Metric struct {
	Value  float64
	Symbol string
}

var (
	leadingSymbolRe = regexp.MustCompile(`^[^\d\-+]+`)
	nonNumericRe    = regexp.MustCompile(`[^\d\-.]`)
	numericTokenRe  = regexp.MustCompile(`([$¥€£]?\s*-?\d(?:[\d,]*\d)?(?:\.\d+)?)`)
	anyMetricRe     = regexp.MustCompile(`([$¥€£])?\s*(-?\d(?:[\d,]*\d)?(?:\.\d+)?)`)
	symbolRe        = regexp.MustCompile(`[$¥€£]`)
	keywordNoiseRe  = regexp.MustCompile(`(?i)target|current|salary|:|,`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Parse extracts a numeric value and an optional leading symbol from raw.
// Clean numeric strings parse directly with an empty symbol. The second
// return value is false when no numeric value can be recovered.
func Parse(raw string) (Metric, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Metric{}, false
	}

	symbol := ""
	if m := leadingSymbolRe.FindString(trimmed); m != "" {
		symbol = strings.TrimSpace(m)
	}

	numericPart := nonNumericRe.ReplaceAllString(trimmed, "")
	value, err := strconv.ParseFloat(numericPart, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Metric{Symbol: symbol}, false
	}

	return Metric{Value: value, Symbol: symbol}, true
}

// ExtractKeyword finds a metric token scoped to a keyword such as "current"
// or "target". The keyword must be followed, within a short window, by an
// optional symbol and a numeric token. Without a keyword match it falls
// back to the first numeric token anywhere in the text, with residual
// keyword words stripped out.
func ExtractKeyword(text, keyword string) (string, bool) {
	if text == "" || keyword == "" {
		return "", false
	}

	scoped := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword) + `[^$¥€£\d-]*([$¥€£]?\s*-?\d(?:[\d,]*\d)?(?:\.\d+)?)`)
	if m := scoped.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
		return whitespaceRe.ReplaceAllString(m[1], ""), true
	}

	if m := numericTokenRe.FindStringSubmatch(text); len(m) > 1 && m[1] != "" {
		token := whitespaceRe.ReplaceAllString(m[1], "")
		token = strings.TrimSpace(keywordNoiseRe.ReplaceAllString(token, ""))
		if token != "" {
			return token, true
		}
	}

	return "", false
}

// ExtractAny finds the first symbol-optional numeric token anywhere in the
// text. Used on goal titles, where no keyword scoping applies.
func ExtractAny(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	flattened := strings.ReplaceAll(text, "\n", " ")
	m := anyMetricRe.FindStringSubmatch(flattened)
	if len(m) < 3 || m[2] == "" {
		return "", false
	}

	numeric := strings.ReplaceAll(m[2], ",", "")
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return "", false
	}

	token := strconv.FormatFloat(value, 'f', -1, 64)
	if m[1] != "" {
		token = m[1] + token
	}
	return token, true
}

// DetectSymbol returns the first recognized currency glyph found across the
// candidate texts, or DefaultSymbol when none is present.
func DetectSymbol(texts ...string) string {
	for _, text := range texts {
		if text == "" {
			continue
		}
		if m := symbolRe.FindString(text); m != "" {
			return m
		}
	}
	return DefaultSymbol
}

// Format renders a value with its symbol: rounded to 2 decimal places,
// thousands-grouped, symbol prefixed with no separating space.
func Format(symbol string, value float64) string {
	rounded := math.Round(value*100) / 100
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) {
		return symbol + fmt.Sprintf("%v", value)
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprint(number.Decimal(rounded, number.MaxFractionDigits(2)))
	return symbol + formatted
}
