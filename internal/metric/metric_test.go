package metric

import (
	"testing"
)

func TestParse_CleanNumericString(t *testing.T) {
	// Given: A clean numeric string
	// When: We parse it
	m, ok := Parse("4200")

	// Then: The value parses directly with an empty symbol
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if m.Value != 4200 {
		t.Errorf("expected 4200, got %v", m.Value)
	}
	if m.Symbol != "" {
		t.Errorf("expected empty symbol, got %q", m.Symbol)
	}
}

func TestParse_CurrencyPrefixedWithThousands(t *testing.T) {
	m, ok := Parse("$2,000")

	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if m.Value != 2000 {
		t.Errorf("expected 2000, got %v", m.Value)
	}
	if m.Symbol != "$" {
		t.Errorf("expected $, got %q", m.Symbol)
	}
}

func TestParse_WhitespaceInsideToken(t *testing.T) {
	// Given: A token with whitespace between groups
	m, ok := Parse("1, 000")

	// Then: Whitespace is stripped before parsing
	if !ok || m.Value != 1000 {
		t.Errorf("expected 1000, got ok=%v value=%v", ok, m.Value)
	}
}

func TestParse_EmptyAndUnparseableYieldNoValue(t *testing.T) {
	// Missing and unparseable inputs are "no value", not zero.
	for _, raw := range []string{"", "   ", "no numbers here"} {
		if _, ok := Parse(raw); ok {
			t.Errorf("Parse(%q): expected no value", raw)
		}
	}
}

func TestParse_NegativeValue(t *testing.T) {
	m, ok := Parse("-42.5")

	if !ok || m.Value != -42.5 {
		t.Errorf("expected -42.5, got ok=%v value=%v", ok, m.Value)
	}
	if m.Symbol != "" {
		t.Errorf("expected empty symbol, got %q", m.Symbol)
	}
}

func TestExtractKeyword_ScopedMatch(t *testing.T) {
	// Given: Notes carrying current and target metrics
	notes := "Current salary: $4,200, Target salary: $10,000"

	// When: We extract by keyword
	current, ok := ExtractKeyword(notes, "current")
	if !ok {
		t.Fatal("expected current match")
	}
	target, ok := ExtractKeyword(notes, "target")
	if !ok {
		t.Fatal("expected target match")
	}

	// Then: Each keyword finds its own token
	if current != "$4,200" {
		t.Errorf("expected $4,200, got %q", current)
	}
	if target != "$10,000" {
		t.Errorf("expected $10,000, got %q", target)
	}
}

func TestExtractKeyword_CaseInsensitive(t *testing.T) {
	token, ok := ExtractKeyword("CURRENT value is 500", "current")

	if !ok || token != "500" {
		t.Errorf("expected 500, got ok=%v token=%q", ok, token)
	}
}

func TestExtractKeyword_FallbackToFirstToken(t *testing.T) {
	// Given: Text without the keyword but with a numeric token
	token, ok := ExtractKeyword("save up €3,000 this year", "target")

	// Then: The first numeric token wins with noise words stripped
	if !ok || token != "€3000" {
		t.Errorf("expected €3000, got ok=%v token=%q", ok, token)
	}
}

func TestExtractKeyword_NoNumbers(t *testing.T) {
	if _, ok := ExtractKeyword("just some words", "current"); ok {
		t.Error("expected no match")
	}
}

func TestExtractAny_TitleWithSymbol(t *testing.T) {
	token, ok := ExtractAny("Reach $10,000 monthly salary")

	if !ok || token != "$10000" {
		t.Errorf("expected $10000, got ok=%v token=%q", ok, token)
	}
}

func TestExtractAny_BareNumber(t *testing.T) {
	token, ok := ExtractAny("Run 500 kilometers")

	if !ok || token != "500" {
		t.Errorf("expected 500, got ok=%v token=%q", ok, token)
	}
}

func TestExtractAny_NoMatch(t *testing.T) {
	if _, ok := ExtractAny("no metrics whatsoever"); ok {
		t.Error("expected no match")
	}
}

func TestDetectSymbol_FirstCandidateWins(t *testing.T) {
	// Given: Multiple candidate texts; the first containing a glyph wins
	symbol := DetectSymbol("no glyph here", "save €500", "then $100")

	if symbol != "€" {
		t.Errorf("expected €, got %q", symbol)
	}
}

func TestDetectSymbol_Default(t *testing.T) {
	if s := DetectSymbol("nothing", ""); s != "$" {
		t.Errorf("expected $, got %q", s)
	}
}

func TestFormat_ThousandsGroupingAndRounding(t *testing.T) {
	tests := []struct {
		symbol string
		value  float64
		want   string
	}{
		{"$", 2500, "$2,500"},
		{"$", 10000, "$10,000"},
		{"", 50, "50"},
		{"€", 1234.567, "€1,234.57"},
		{"$", 0, "$0"},
	}

	for _, tt := range tests {
		if got := Format(tt.symbol, tt.value); got != tt.want {
			t.Errorf("Format(%q, %v) = %q, want %q", tt.symbol, tt.value, got, tt.want)
		}
	}
}

func TestFormat_ParseRoundTrip(t *testing.T) {
	// Formatting then parsing then reformatting is stable within
	// 2-decimal rounding.
	values := []float64{2500, 999.99, 10000, 0.1}

	for _, v := range values {
		formatted := Format("$", v)
		parsed, ok := Parse(formatted)
		if !ok {
			t.Fatalf("Parse(%q) failed", formatted)
		}
		if again := Format(parsed.Symbol, parsed.Value); again != formatted {
			t.Errorf("round trip mismatch: %q vs %q", formatted, again)
		}
	}
}
