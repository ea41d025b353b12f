// Package answer post-processes synthesized answers: format coercion,
// citation extraction and confidence scoring. Every function here is pure
// and operates on the final workflow state only.
package answer

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hybriq/hybriq/pkg/models"
)

// Outcome distinguishes a clean parse from a degraded fallback, so callers
// and tests can tell them apart instead of both paths looking identical.
type Outcome string

const (
	// OutcomeParsed means the answer matched the requested format.
	OutcomeParsed Outcome = "parsed"
	// OutcomeFallback means format parsing failed and the value is the
	// best-effort generic interpretation of the raw text.
	OutcomeFallback Outcome = "fallback"
)

// Parsed is the typed result of answer parsing.
type Parsed struct {
	Value   any
	Outcome Outcome
}

var (
	digitRun   = regexp.MustCompile(`\d+`)
	decimalRun = regexp.MustCompile(`[\d.]+`)
)

// Parse coerces raw synthesized text into the shape the format hint asks
// for. Parsing never fails past this function: any failure degrades first
// to a generic JSON interpretation and finally to the raw trimmed text.
func Parse(raw string, hint models.FormatHint) Parsed {
	text := stripCodeFence(strings.TrimSpace(raw))

	switch {
	case hint == models.FormatInt:
		if match := digitRun.FindString(text); match != "" {
			if n, err := strconv.ParseInt(match, 10, 64); err == nil {
				return Parsed{Value: n, Outcome: OutcomeParsed}
			}
		}

		return fallback(text)

	case hint == models.FormatFloat:
		match := decimalRun.FindString(text)
		if match == "" {
			// a missing decimal defaults to zero rather than failing
			return Parsed{Value: 0.0, Outcome: OutcomeParsed}
		}

		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return fallback(text)
		}

		return Parsed{Value: round2(f), Outcome: OutcomeParsed}

	case hint.IsList(), hint.IsObject():
		var value any
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return fallback(text)
		}

		return Parsed{Value: value, Outcome: OutcomeParsed}

	default:
		return Parsed{Value: text, Outcome: OutcomeParsed}
	}
}

// fallback attempts a generic JSON parse and otherwise returns the raw
// trimmed text.
func fallback(text string) Parsed {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		return Parsed{Value: value, Outcome: OutcomeFallback}
	}

	return Parsed{Value: text, Outcome: OutcomeFallback}
}

// stripCodeFence removes enclosing markdown code-fence markup and a
// leading json language tag.
func stripCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return text
	}

	text = parts[1]
	text = strings.TrimPrefix(text, "json\n")

	return strings.TrimSpace(text)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
